package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gonum.org/v1/plot"

	"stocklens/internal/charts"
	apperrors "stocklens/internal/errors"
	"stocklens/internal/exporter"
	"stocklens/internal/pipeline"
	"stocklens/internal/table"
	"stocklens/pkg/contracts/domain"
)

// Runner runs one analysis. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, src pipeline.Source) (*pipeline.Result, error)
	Variant() string
}

// AnalysisOptions tunes presentation of analysis results
type AnalysisOptions struct {
	PreviewRows int
	Chart       charts.Options
}

// ColumnInfo describes one column of the analysed table
type ColumnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Preview holds the first rows of the cleaned table as display strings
type Preview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total_rows"`
}

// AnalysisSummary is the JSON response for an uploaded CSV
type AnalysisSummary struct {
	Metadata domain.RunMetadata     `json:"metadata"`
	Columns  []ColumnInfo           `json:"columns"`
	Preview  Preview                `json:"preview"`
	Charts   []string               `json:"charts"`
	Warnings []string               `json:"warnings,omitempty"`
	Results  domain.AnalysisResults `json:"results"`
}

// AnalysisService runs uploaded CSVs through the pipeline and renders the results
type AnalysisService struct {
	runner Runner
	opts   AnalysisOptions
	logger *slog.Logger
}

// NewAnalysisService creates an analysis service
func NewAnalysisService(runner Runner, opts AnalysisOptions, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 5
	}
	if opts.Chart.Width <= 0 || opts.Chart.Height <= 0 {
		opts.Chart = charts.DefaultOptions()
	}

	logger = logger.With(slog.String("service", "analysis"))
	logger.Info("AnalysisService initialized",
		slog.String("variant", runner.Variant()),
		slog.Int("preview_rows", opts.PreviewRows))

	return &AnalysisService{runner: runner, opts: opts, logger: logger}
}

// PreviewRows returns the default preview size
func (s *AnalysisService) PreviewRows() int {
	return s.opts.PreviewRows
}

// Analyze runs the pipeline over r. name labels the upload in metadata and logs.
func (s *AnalysisService) Analyze(ctx context.Context, name string, r io.Reader) (*pipeline.Result, error) {
	if r == nil {
		return nil, apperrors.NewAppValidationError("no CSV content supplied")
	}

	res, err := s.runner.Run(ctx, pipeline.Source{Reader: r, Name: name})
	if err != nil {
		s.logger.WarnContext(ctx, "analysis failed",
			slog.String("source", name),
			slog.String("error", err.Error()))
		return nil, err
	}
	return res, nil
}

// Summary builds the JSON response for res with up to previewRows rows
func (s *AnalysisService) Summary(res *pipeline.Result, previewRows int) AnalysisSummary {
	if previewRows <= 0 {
		previewRows = s.opts.PreviewRows
	}
	return AnalysisSummary{
		Metadata: res.Metadata,
		Columns:  columnInfo(res.Table),
		Preview:  buildPreview(res.Table, previewRows),
		Charts:   AvailableCharts(res),
		Warnings: res.Warnings,
		Results:  res.Results,
	}
}

// Chart renders the named chart as PNG
func (s *AnalysisService) Chart(ctx context.Context, res *pipeline.Result, name string) ([]byte, error) {
	p, err := BuildChart(res, name)
	if err != nil {
		return nil, err
	}
	data, err := charts.PNG(p, s.opts.Chart)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	s.logger.DebugContext(ctx, "chart rendered",
		slog.String("chart", name),
		slog.Int("bytes", len(data)))
	return data, nil
}

// RenderedChart is one chart encoded as PNG
type RenderedChart struct {
	Name string
	PNG  []byte
}

// Charts renders every chart res can support, in display order
func (s *AnalysisService) Charts(ctx context.Context, res *pipeline.Result) ([]RenderedChart, error) {
	var rendered []RenderedChart
	for _, name := range AvailableCharts(res) {
		data, err := s.Chart(ctx, res, name)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, RenderedChart{Name: name, PNG: data})
	}
	return rendered, nil
}

// Workbook writes res as an XLSX workbook to w
func (s *AnalysisService) Workbook(ctx context.Context, w io.Writer, res *pipeline.Result) error {
	if res == nil || res.Table == nil {
		return ErrNoResult
	}
	if err := exporter.WriteWorkbook(w, WorkbookInput(res)); err != nil {
		s.logger.ErrorContext(ctx, "workbook export failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// WorkbookInput maps a pipeline result onto the workbook sections
func WorkbookInput(res *pipeline.Result) exporter.WorkbookInput {
	return exporter.WorkbookInput{
		Table:        res.Table,
		Correlation:  res.Correlation,
		Summaries:    res.Summaries,
		Monthly:      res.Monthly,
		Rankings:     res.Rankings,
		Distribution: res.Distribution,
	}
}

// chartOrder is the display order of charts
var chartOrder = []string{
	charts.ClosingPriceChart,
	charts.CorrelationHeatmapChart,
	charts.ReturnDistributionChart,
}

// AvailableCharts lists the charts res has data for
func AvailableCharts(res *pipeline.Result) []string {
	names := []string{}
	for _, name := range chartOrder {
		if _, err := BuildChart(res, name); err == nil {
			names = append(names, name)
		}
	}
	return names
}

// BuildChart builds the named chart from res. Unknown names return
// ErrUnknownChart; charts without data return charts.ErrNoData or a
// missing column error.
func BuildChart(res *pipeline.Result, name string) (*plot.Plot, error) {
	if res == nil || res.Table == nil {
		return nil, ErrNoResult
	}
	switch name {
	case charts.ClosingPriceChart:
		return charts.ClosingPrice(res.Table)
	case charts.CorrelationHeatmapChart:
		return charts.CorrelationHeatmap(res.Correlation)
	case charts.ReturnDistributionChart:
		if res.Distribution == nil {
			return nil, charts.ErrNoData
		}
		return charts.ReturnDistribution(*res.Distribution)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChart, name)
}

// IsChartUnavailable reports whether err means a known chart had nothing to draw
func IsChartUnavailable(err error) bool {
	return errors.Is(err, charts.ErrNoData) || errors.Is(err, apperrors.ErrMissingColumn) ||
		errors.Is(err, apperrors.ErrValidation)
}

func columnInfo(t *table.Table) []ColumnInfo {
	columns := t.Columns()
	info := make([]ColumnInfo, len(columns))
	for i, c := range columns {
		info[i] = ColumnInfo{Name: c.Name, Kind: c.Kind.String()}
	}
	return info
}

func buildPreview(t *table.Table, n int) Preview {
	head := t.Head(n)
	rows := head.Records()
	if rows == nil {
		rows = [][]string{}
	}
	return Preview{Columns: head.ColumnNames(), Rows: rows, Total: t.Len()}
}
