package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"stocklens/internal/infrastructure"
)

// Stage names as they appear in logs, spans and metrics
const (
	StageIngest    = "ingest"
	StageClean     = "clean"
	StageFeatures  = "derive_features"
	StageAggregate = "aggregate"
	StageSummarize = "summarize"
)

// Instrumenter wraps stage invocations with a span, a duration histogram
// and a completion log line. It never changes what the stage returns.
type Instrumenter struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// NewInstrumenter creates an instrumenter from the telemetry providers
func NewInstrumenter(providers *infrastructure.OTelProviders, logger *slog.Logger) (*Instrumenter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if providers == nil {
		providers = infrastructure.NoopProviders(logger)
	}
	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}
	return &Instrumenter{
		tracer:  providers.Tracer,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Instrument runs fn as the named stage
func (in *Instrumenter) Instrument(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	ctx, span := in.tracer.Start(ctx, "pipeline.stage."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("stage", stage)),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	)
	in.metrics.StageDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		in.metrics.RunErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		in.logger.ErrorContext(ctx, "stage failed",
			slog.String("stage", stage),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return err
	}

	span.SetStatus(codes.Ok, "")
	in.logger.InfoContext(ctx, "stage completed",
		slog.String("stage", stage),
		slog.Duration("duration", duration))
	return nil
}

// runStarted counts a run and returns a span covering it
func (in *Instrumenter) runStarted(ctx context.Context, runID, variant string) (context.Context, trace.Span) {
	in.metrics.RunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("variant", variant)))
	return in.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.variant", variant),
		),
	)
}

func (in *Instrumenter) recordIngest(ctx context.Context, bytes int64) {
	in.metrics.BytesIngested.Add(ctx, bytes)
}

func (in *Instrumenter) recordRows(ctx context.Context, variant string, rows int) {
	in.metrics.RowsProcessed.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("variant", variant)))
}
