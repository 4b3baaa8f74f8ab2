package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"stocklens/internal/charts"
	apierrors "stocklens/internal/errors"
	"stocklens/internal/middleware"
	"stocklens/internal/pipeline"
	"stocklens/internal/services"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxPreviewRows  = 1000
)

var knownCharts = map[string]bool{
	charts.ClosingPriceChart:       true,
	charts.CorrelationHeatmapChart: true,
	charts.ReturnDistributionChart: true,
}

// AnalysisHandler handles CSV upload analysis requests with RFC 7807 compliance
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	query        *middleware.QueryParamValidator
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	logger = logger.With(slog.String("component", "analysis_handler"))
	return &AnalysisHandler{
		service:      service,
		logger:       logger,
		errorHandler: errorHandler,
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.ContentTypeValidator(h.errorHandler,
		"multipart/form-data", "text/csv", "text/plain", "application/csv"))

	r.Post("/", h.Analyze)
	r.Post("/results", h.Results)
	r.With(h.ChartCtx).Post("/charts/{chart}", h.Chart)
	r.Post("/workbook", h.Workbook)
	return r
}

// ChartCtx rejects unknown chart names before the upload is read
func (h *AnalysisHandler) ChartCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "chart")
		if !knownCharts[name] {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound, "CHART_NOT_FOUND", fmt.Sprintf("Unknown chart %q", name),
				map[string]interface{}{"available": chartNames()},
			))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Analyze handles POST /api/analysis
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.query.ValidateInt(w, r, "rows", 1, maxPreviewRows, h.service.PreviewRows())
	if !ok {
		return
	}

	res, ok := h.analyze(w, r)
	if !ok {
		return
	}

	render.JSON(w, r, h.service.Summary(res, rows))
}

// Results handles POST /api/analysis/results and returns exactly the
// two-key analysis document
func (h *AnalysisHandler) Results(w http.ResponseWriter, r *http.Request) {
	res, ok := h.analyze(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, res.Results)
}

// Chart handles POST /api/analysis/charts/{chart}
func (h *AnalysisHandler) Chart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "chart")

	res, ok := h.analyze(w, r)
	if !ok {
		return
	}

	data, err := h.service.Chart(r.Context(), res, name)
	if err != nil {
		if services.IsChartUnavailable(err) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnprocessableEntity, "CHART_UNAVAILABLE",
				fmt.Sprintf("Chart %q cannot be drawn from this data", name), err.Error(),
			))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Workbook handles POST /api/analysis/workbook
func (h *AnalysisHandler) Workbook(w http.ResponseWriter, r *http.Request) {
	res, ok := h.analyze(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.Workbook(r.Context(), &buf, res); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := strings.TrimSuffix(res.Metadata.Source, filepath.Ext(res.Metadata.Source)) + "_analysis.xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// analyze reads the upload and runs it through the service. On failure the
// problem response is already written.
func (h *AnalysisHandler) analyze(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	up, err := readUpload(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	defer up.done()

	h.logger.InfoContext(r.Context(), "analysis requested",
		slog.String("file", up.name),
		slog.Int64("size", up.size),
		slog.String("request_id", middleware.GetRequestID(r.Context())))

	res, err := h.service.Analyze(r.Context(), up.name, up.body)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	return res, true
}

func chartNames() []string {
	return []string{charts.ClosingPriceChart, charts.CorrelationHeatmapChart, charts.ReturnDistributionChart}
}
