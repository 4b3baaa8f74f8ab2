package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"stocklens/internal/charts"
	"stocklens/internal/config"
	"stocklens/internal/exporter"
	"stocklens/internal/pipeline"
)

// Artifacts lists the files a batch run wrote
type Artifacts struct {
	Charts   []string `json:"charts,omitempty"`
	CSV      []string `json:"csv,omitempty"`
	Workbook string   `json:"workbook,omitempty"`
}

// Count returns the number of files written
func (a Artifacts) Count() int {
	n := len(a.Charts) + len(a.CSV)
	if a.Workbook != "" {
		n++
	}
	return n
}

// ArtifactService writes batch results to the configured output locations
type ArtifactService struct {
	paths     config.OutputPaths
	chartOpts charts.Options
	logger    *slog.Logger
}

// NewArtifactService creates an artifact writer. Empty paths disable the
// corresponding artifact.
func NewArtifactService(paths config.OutputPaths, chartOpts charts.Options, logger *slog.Logger) *ArtifactService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArtifactService{
		paths:     paths,
		chartOpts: chartOpts,
		logger:    logger.With(slog.String("service", "artifacts")),
	}
}

// Write renders every configured artifact for res
func (s *ArtifactService) Write(ctx context.Context, res *pipeline.Result) (Artifacts, error) {
	var out Artifacts
	if res == nil || res.Table == nil {
		return out, ErrNoResult
	}
	if !s.paths.Any() {
		return out, nil
	}
	if err := s.paths.EnsureDirectories(); err != nil {
		return out, err
	}

	if s.paths.ChartsDir != "" {
		written, err := s.writeCharts(ctx, res)
		if err != nil {
			return out, err
		}
		out.Charts = written
	}

	if s.paths.CSVDir != "" {
		written, err := s.writeCSV(ctx, res)
		if err != nil {
			return out, err
		}
		out.CSV = written
	}

	if s.paths.WorkbookPath != "" {
		if err := exporter.SaveWorkbook(s.paths.WorkbookPath, WorkbookInput(res)); err != nil {
			return out, err
		}
		out.Workbook = s.paths.WorkbookPath
		s.logger.InfoContext(ctx, "workbook written", slog.String("path", out.Workbook))
	}

	return out, nil
}

func (s *ArtifactService) writeCharts(ctx context.Context, res *pipeline.Result) ([]string, error) {
	var written []string
	for _, name := range chartOrder {
		p, err := BuildChart(res, name)
		if err != nil {
			if IsChartUnavailable(err) {
				s.logger.WarnContext(ctx, "chart skipped",
					slog.String("chart", name),
					slog.String("reason", err.Error()))
				continue
			}
			return written, err
		}
		path, err := charts.SavePNG(s.paths.ChartsDir, name, p, s.chartOpts)
		if err != nil {
			return written, err
		}
		s.logger.InfoContext(ctx, "chart written",
			slog.String("chart", name),
			slog.String("path", path))
		written = append(written, path)
	}
	return written, nil
}

func (s *ArtifactService) writeCSV(ctx context.Context, res *pipeline.Result) ([]string, error) {
	w := exporter.NewCSVWriter(s.paths.CSVDir).WithLogger(s.logger)
	base := exportBaseName(res.Metadata.Source)

	var written []string
	path, err := w.WriteTable(base+"_derived.csv", res.Table)
	if err != nil {
		return written, fmt.Errorf("failed to export table: %w", err)
	}
	written = append(written, path)

	if len(res.Monthly) > 0 {
		path, err := w.WriteMonthly(base+"_monthly.csv", res.Monthly)
		if err != nil {
			return written, fmt.Errorf("failed to export monthly aggregation: %w", err)
		}
		written = append(written, path)
	}

	if res.Rankings != nil {
		path, err := w.WriteRankings(base+"_rankings.csv", *res.Rankings)
		if err != nil {
			return written, fmt.Errorf("failed to export rankings: %w", err)
		}
		written = append(written, path)
	}

	s.logger.InfoContext(ctx, "csv exports written", slog.Int("files", len(written)))
	return written, nil
}

// exportBaseName derives export file names from the input name
func exportBaseName(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "analysis"
	}
	return base
}
