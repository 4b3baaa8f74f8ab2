// Package pipeline runs the analysis stages over one table per run:
// ingest, clean, derive features, then the variant's aggregations and the
// JSON summary document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stocklens/internal/config"
	"stocklens/internal/dataprocessing"
	apperrors "stocklens/internal/errors"
	"stocklens/internal/infrastructure"
	"stocklens/internal/ingest"
	"stocklens/internal/table"
	"stocklens/pkg/contracts/domain"
)

// Source names the CSV input of a run. Reader takes precedence over Path.
type Source struct {
	Path   string
	Reader io.Reader
	// Name labels a Reader source; defaults to the base name of Path
	Name string
}

func (s Source) label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Path
}

// Result holds everything a run produced. Sections a variant does not
// compute, or that were skipped for a missing column, are left empty.
type Result struct {
	Metadata     domain.RunMetadata
	Table        *table.Table
	ReturnColumn string
	Features     dataprocessing.FeatureReport
	Correlation  domain.CorrelationTable
	Summaries    []domain.ColumnSummary
	Rankings     *domain.Rankings
	Monthly      []domain.MonthlyAggregate
	Distribution *domain.Distribution
	Results      domain.AnalysisResults
	Warnings     []string
}

// Pipeline runs analyses with a fixed configuration. It holds no per-run
// state and may be shared between goroutines.
type Pipeline struct {
	cfg    config.AnalysisConfig
	logger *slog.Logger
	instr  *Instrumenter
}

// New creates a pipeline. A nil providers value disables telemetry.
func New(cfg config.AnalysisConfig, providers *infrastructure.OTelProviders, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "pipeline")

	instr, err := NewInstrumenter(providers, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	if cfg.Variant == "" {
		cfg.Variant = config.VariantBatch
	}
	return &Pipeline{cfg: cfg, logger: logger, instr: instr}, nil
}

// Variant returns the configured analysis variant
func (p *Pipeline) Variant() string {
	return p.cfg.Variant
}

// ReturnColumnFor returns the name of the percentage return column a variant derives
func ReturnColumnFor(variant string) string {
	if variant == config.VariantInteractive {
		return dataprocessing.ColumnDailyReturn
	}
	return dataprocessing.ColumnDailyChange
}

// Run executes every stage of the configured variant against src.
// Ingestion and cleaning failures abort the run. An aggregation whose
// columns are absent is skipped and noted in Result.Warnings.
func (p *Pipeline) Run(ctx context.Context, src Source) (*Result, error) {
	runID := uuid.New().String()
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := p.instr.runStarted(ctx, runID, p.cfg.Variant)
	defer span.End()

	logger := p.logger.With(slog.String("run_id", runID), slog.String("variant", p.cfg.Variant))
	started := time.Now()

	res := &Result{ReturnColumn: ReturnColumnFor(p.cfg.Variant)}

	err := p.instr.Instrument(ctx, StageIngest, func(ctx context.Context) error {
		t, err := p.ingest(ctx, src)
		if err != nil {
			return err
		}
		res.Table = t
		p.instr.recordIngest(ctx, t.Source.Bytes)
		logger.InfoContext(ctx, "input loaded",
			slog.String("source", t.Source.Name),
			slog.Int64("bytes", t.Source.Bytes),
			slog.String("digest", t.Source.Digest),
			slog.Int("rows", t.Len()),
			slog.Int("columns", len(t.ColumnNames())))
		return nil
	})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	t := res.Table

	var cleaning domain.CleaningReport
	err = p.instr.Instrument(ctx, StageClean, func(ctx context.Context) error {
		report, err := dataprocessing.Clean(ctx, t, dataprocessing.CleanOptions{
			DateLayouts: p.cfg.DateLayouts,
			SortByDate:  p.cfg.SortByDate(),
		})
		if err != nil {
			return err
		}
		cleaning = report
		logger.InfoContext(ctx, "table cleaned",
			slog.Int("rows_in", report.RowsIn),
			slog.Int("dates_coerced", report.DatesCoerced),
			slog.Int("missing_dropped", report.MissingDropped),
			slog.Int("duplicates_dropped", report.DuplicatesDropped),
			slog.Int("rows_out", report.RowsOut))
		return nil
	})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	err = p.instr.Instrument(ctx, StageFeatures, func(ctx context.Context) error {
		report, err := dataprocessing.DeriveFeatures(t, dataprocessing.FeatureOptions{
			ReturnColumn:        res.ReturnColumn,
			MovingAverageWindow: p.cfg.MovingAverageWindow,
		})
		if err != nil {
			return err
		}
		res.Features = report
		for _, s := range report.Skipped {
			logger.WarnContext(ctx, "feature skipped",
				slog.String("column", s.Column),
				slog.String("reason", s.Reason))
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s skipped: %s", s.Column, s.Reason))
		}
		return nil
	})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = p.instr.Instrument(ctx, StageAggregate, func(ctx context.Context) error {
		res.Correlation = dataprocessing.CorrelationMatrix(t)
		if p.cfg.Variant == config.VariantInteractive {
			return p.aggregateInteractive(ctx, res, logger)
		}
		return p.aggregateBatch(ctx, res, logger)
	})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	err = p.instr.Instrument(ctx, StageSummarize, func(ctx context.Context) error {
		res.Results = dataprocessing.BuildAnalysisResults(t, res.ReturnColumn)
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.instr.recordRows(ctx, p.cfg.Variant, t.Len())
	duration := time.Since(started)
	res.Metadata = domain.RunMetadata{
		RunID:       runID,
		Variant:     p.cfg.Variant,
		Source:      t.Source.Name,
		SourceBytes: t.Source.Bytes,
		Digest:      t.Source.Digest,
		Columns:     t.ColumnNames(),
		Derived:     res.Features.Derived,
		Cleaning:    cleaning,
		StartedAt:   started.UTC(),
		Duration:    duration.String(),
	}

	logger.InfoContext(ctx, "analysis completed",
		slog.Int("rows", t.Len()),
		slog.Int("warnings", len(res.Warnings)),
		slog.Duration("duration", duration))
	return res, nil
}

func (p *Pipeline) ingest(ctx context.Context, src Source) (*table.Table, error) {
	opts := ingest.Options{Thousands: p.cfg.Thousands, Name: src.Name}
	if src.Reader != nil {
		if opts.Name == "" {
			opts.Name = "upload"
		}
		return ingest.ReadCSV(ctx, src.Reader, opts)
	}
	if src.Path == "" {
		return nil, apperrors.NewAppValidationError("no input: a CSV path or reader is required")
	}
	return ingest.LoadFile(ctx, src.Path, opts)
}

// aggregateBatch computes the describe table, per-symbol rankings and the
// monthly aggregation
func (p *Pipeline) aggregateBatch(ctx context.Context, res *Result, logger *slog.Logger) error {
	t := res.Table
	res.Summaries = dataprocessing.Describe(t)

	stats, err := dataprocessing.GroupStats(t, dataprocessing.ColumnSymbol, res.ReturnColumn)
	switch {
	case p.skippable(ctx, res, logger, "rankings", err):
	case err != nil:
		return err
	default:
		rankings := dataprocessing.RankGroups(stats, p.cfg.TopN)
		res.Rankings = &rankings
	}

	months, err := dataprocessing.MonthlyAggregates(t)
	if p.skippable(ctx, res, logger, "monthly aggregation", err) {
		return nil
	}
	if err != nil {
		return err
	}
	res.Monthly = months
	return nil
}

// aggregateInteractive computes the return histogram and density
func (p *Pipeline) aggregateInteractive(ctx context.Context, res *Result, logger *slog.Logger) error {
	returns, ok := res.Table.Floats(res.ReturnColumn)
	if !ok {
		p.skippable(ctx, res, logger, "return distribution",
			apperrors.NewMissingColumnError("return distribution", res.ReturnColumn))
		return nil
	}
	dist := dataprocessing.ReturnDistribution(res.ReturnColumn, returns, p.cfg.HistogramBins)
	res.Distribution = &dist
	return nil
}

// skippable reports whether err is a missing-column error, recording a
// warning when it is
func (p *Pipeline) skippable(ctx context.Context, res *Result, logger *slog.Logger, section string, err error) bool {
	if err == nil || !errors.Is(err, apperrors.ErrMissingColumn) {
		return false
	}
	logger.WarnContext(ctx, "section skipped",
		slog.String("section", section),
		slog.String("error", err.Error()))
	res.Warnings = append(res.Warnings, fmt.Sprintf("%s skipped: %v", section, err))
	return true
}
