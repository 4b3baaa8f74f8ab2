package http

import (
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"stocklens/internal/charts"
	apierrors "stocklens/internal/errors"
	"stocklens/internal/services"
	"stocklens/pkg/contracts"
	"stocklens/pkg/contracts/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var chartTitles = map[string]string{
	charts.ClosingPriceChart:       "Closing Price Over Time",
	charts.CorrelationHeatmapChart: domain.KeyCorrelationHeatmap,
	charts.ReturnDistributionChart: domain.KeyReturnDistribution,
}

// chartImage is a chart inlined as a data URI
type chartImage struct {
	Name  string
	Title string
	Src   template.URL
}

type indexPage struct {
	Title   string
	Version string
	Error   string
}

type resultsPage struct {
	Title    string
	Version  string
	Metadata domain.RunMetadata
	Preview  services.Preview
	Warnings []string
	Charts   []chartImage
	JSON     string
}

// HTMLHandler serves the upload page and the rendered results page
type HTMLHandler struct {
	service      AnalysisServiceInterface
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
	index        *template.Template
	results      *template.Template
}

// NewHTMLHandler parses the embedded templates
func NewHTMLHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) (*HTMLHandler, error) {
	index, err := template.ParseFS(templateFS, "templates/layout.html", "templates/index.html")
	if err != nil {
		return nil, err
	}
	results, err := template.ParseFS(templateFS, "templates/layout.html", "templates/results.html")
	if err != nil {
		return nil, err
	}
	return &HTMLHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "html_handler")),
		index:        index,
		results:      results,
	}, nil
}

// Index handles GET /
func (h *HTMLHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.index, http.StatusOK, indexPage{Title: "Upload", Version: contracts.GetVersionString()})
}

// Analyze handles POST /analyze
func (h *HTMLHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	up, err := readUpload(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	defer up.done()

	res, err := h.service.Analyze(ctx, up.name, up.body)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	rendered, err := h.service.Charts(ctx, res)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	images := make([]chartImage, len(rendered))
	for i, c := range rendered {
		images[i] = chartImage{
			Name:  c.Name,
			Title: chartTitles[c.Name],
			Src:   template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(c.PNG)),
		}
	}

	doc, err := json.MarshalIndent(res.Results, "", "  ")
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	summary := h.service.Summary(res, h.service.PreviewRows())
	h.render(w, r, h.results, http.StatusOK, resultsPage{
		Title:    "Results",
		Version:  contracts.GetVersionString(),
		Metadata: summary.Metadata,
		Preview:  summary.Preview,
		Warnings: summary.Warnings,
		Charts:   images,
		JSON:     string(doc),
	})
}

// renderError shows the upload page again with the problem detail
func (h *HTMLHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	problem := h.errorHandler.ErrorToProblem(err, r)
	h.logger.WarnContext(r.Context(), "upload rejected",
		slog.Int("status", problem.Status),
		slog.String("error", err.Error()))

	h.render(w, r, h.index, problem.Status, indexPage{
		Title:   "Upload",
		Version: contracts.GetVersionString(),
		Error:   problem.Title + ": " + problem.Detail,
	})
}

// render executes into a buffer first so a template failure still yields a clean 500
func (h *HTMLHandler) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, status int, data interface{}) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.ErrorContext(r.Context(), "template execution failed", slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
