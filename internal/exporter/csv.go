package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "stocklens/internal/errors"
	"stocklens/internal/table"
	"stocklens/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality rooted at one directory
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir, logger: slog.Default()}
}

// WithLogger returns a copy of the writer logging to logger
func (w *CSVWriter) WithLogger(logger *slog.Logger) *CSVWriter {
	c := *w
	c.logger = logger
	return &c
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options and returns its path
func (w *CSVWriter) WriteCSV(name string, options WriteOptions) (string, error) {
	stream, err := w.createStream(name, options.Headers, options.BOMPrefix, len(options.Records))
	if err != nil {
		return "", err
	}

	for i, record := range options.Records {
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := stream.Close(); err != nil {
		return "", apperrors.NewStorageError("failed to flush csv", err).WithContext("path", stream.path)
	}
	return stream.path, nil
}

// WriteTable streams every row of t, derived columns included
func (w *CSVWriter) WriteTable(name string, t *table.Table) (string, error) {
	stream, err := w.createStream(name, t.ColumnNames(), true, t.Len())
	if err != nil {
		return "", err
	}

	record := make([]string, len(t.ColumnNames()))
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			record[j] = formatValue(v)
		}
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return "", fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := stream.Close(); err != nil {
		return "", apperrors.NewStorageError("failed to flush csv", err).WithContext("path", stream.path)
	}
	return stream.path, nil
}

// WriteMonthly exports the monthly aggregation
func (w *CSVWriter) WriteMonthly(name string, months []domain.MonthlyAggregate) (string, error) {
	records := make([][]string, 0, len(months))
	for _, m := range months {
		records = append(records, []string{
			m.Label(),
			formatFloat(float64(m.SharesTraded)),
			formatFloat(float64(m.AverageClose)),
			formatInt(m.Rows),
		})
	}
	return w.WriteCSV(name, WriteOptions{
		Headers:   []string{"Month", "Shares Traded", "Average Close", "Rows"},
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteRankings exports the three leaderboards in one file, tagged by board
func (w *CSVWriter) WriteRankings(name string, rankings domain.Rankings) (string, error) {
	var records [][]string
	boards := []struct {
		name  string
		stats []domain.GroupStat
	}{
		{"top_performers", rankings.TopPerformers},
		{"underperformers", rankings.Underperformers},
		{"most_volatile", rankings.MostVolatile},
	}
	for _, board := range boards {
		for i, s := range board.stats {
			records = append(records, []string{
				board.name,
				formatInt(i + 1),
				s.Key,
				formatFloat(float64(s.Mean)),
				formatFloat(float64(s.Std)),
				formatInt(s.Count),
			})
		}
	}
	return w.WriteCSV(name, WriteOptions{
		Headers:   []string{"Board", "Rank", "Symbol", "Mean", "Std", "Rows"},
		Records:   records,
		BOMPrefix: true,
	})
}

// StreamWriter provides streaming CSV writing for large datasets
type StreamWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

func (w *CSVWriter) createStream(name string, headers []string, bom bool, rows int) (*StreamWriter, error) {
	fullPath := w.resolvePath(name)

	w.logger.Info("Writing CSV file",
		slog.String("file", name),
		slog.String("full_path", fullPath),
		slog.Int("record_count", rows))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create directory", err).WithContext("path", fullPath)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create file", err).WithContext("path", fullPath)
	}

	if bom {
		if _, err := file.Write(utf8BOM); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return &StreamWriter{path: fullPath, file: file, writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// resolvePath places relative names under the writer's directory
func (w *CSVWriter) resolvePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(w.dir, name)
}
