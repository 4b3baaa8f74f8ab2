package http

import (
	"context"
	"io"

	"stocklens/internal/pipeline"
	"stocklens/internal/services"
)

// AnalysisServiceInterface defines the interface for analysis operations
type AnalysisServiceInterface interface {
	Analyze(ctx context.Context, name string, r io.Reader) (*pipeline.Result, error)
	Summary(res *pipeline.Result, previewRows int) services.AnalysisSummary
	Chart(ctx context.Context, res *pipeline.Result, name string) ([]byte, error)
	Charts(ctx context.Context, res *pipeline.Result) ([]services.RenderedChart, error)
	Workbook(ctx context.Context, w io.Writer, res *pipeline.Result) error
	PreviewRows() int
}
