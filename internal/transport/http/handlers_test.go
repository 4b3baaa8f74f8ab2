package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stocklens/internal/charts"
	"stocklens/internal/config"
	apierrors "stocklens/internal/errors"
	"stocklens/internal/middleware"
	"stocklens/internal/pipeline"
	"stocklens/internal/services"
	"stocklens/pkg/contracts/domain"
)

const pricesCSV = `Date,Open,Close,Symbol,Shares Traded
2024-01-02,10,11,AAA,100
2024-01-03,11,10.5,BBB,200
2024-01-04,10.5,12,AAA,150
2024-02-01,12,12.6,BBB,300
2024-02-02,12.6,12,AAA,120
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// newTestRouter wires the handlers the way the web application does
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := testLogger()

	cfg := config.Default().Analysis
	cfg.Variant = config.VariantInteractive
	p, err := pipeline.New(cfg, nil, logger)
	require.NoError(t, err)

	svc := services.NewAnalysisService(p, services.AnalysisOptions{
		PreviewRows: 3,
		Chart:       charts.OptionsInches(4, 3),
	}, logger)
	errorHandler := apierrors.NewErrorHandler(logger, false)

	htmlHandler, err := NewHTMLHandler(svc, logger, errorHandler)
	require.NoError(t, err)
	healthHandler := NewHealthHandler(services.NewHealthService(logger), logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.MaxBodySize(4096))
	r.Get("/", htmlHandler.Index)
	r.Post("/analyze", htmlHandler.Analyze)
	r.Route("/api", func(r chi.Router) {
		r.Mount("/analysis", NewAnalysisHandler(svc, logger, errorHandler).Routes())
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
	})
	return r
}

func multipartRequest(t *testing.T, target, field, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func csvRequest(target, content string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(content))
	req.Header.Set("Content-Type", "text/csv")
	return req
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestAnalysisHandler_Analyze(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, multipartRequest(t, "/api/analysis", "file", "prices.csv", pricesCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary struct {
		Metadata domain.RunMetadata     `json:"metadata"`
		Preview  services.Preview       `json:"preview"`
		Charts   []string               `json:"charts"`
		Results  map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))

	assert.Equal(t, "prices.csv", summary.Metadata.Source)
	assert.Equal(t, config.VariantInteractive, summary.Metadata.Variant)
	assert.Len(t, summary.Preview.Rows, 3)
	assert.Equal(t, 5, summary.Preview.Total)
	assert.Len(t, summary.Charts, 3)
	assert.Len(t, summary.Results, 2)
}

func TestAnalysisHandler_AnalyzePreviewRows(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, csvRequest("/api/analysis?rows=5&name=../../etc/prices.csv", pricesCSV))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Len(t, body["preview"].(map[string]interface{})["rows"], 5)
	assert.Equal(t, "prices.csv", body["metadata"].(map[string]interface{})["source"])

	rec = serve(t, router, csvRequest("/api/analysis?rows=0", pricesCSV))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysisHandler_Results(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, csvRequest("/api/analysis/results", pricesCSV))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON(t, rec)
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{domain.KeyCorrelationHeatmap, domain.KeyReturnDistribution}, keys)

	returns := body[domain.KeyReturnDistribution].([]interface{})
	require.Len(t, returns, 5)
	assert.InDelta(t, 10.0, returns[0].(float64), 1e-9)

	heatmap := body[domain.KeyCorrelationHeatmap].(map[string]interface{})
	closeRow := heatmap["Close"].(map[string]interface{})
	assert.InDelta(t, 1.0, closeRow["Close"].(float64), 1e-9)
}

func TestAnalysisHandler_Chart(t *testing.T) {
	router := newTestRouter(t)

	for _, name := range chartNames() {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, router, csvRequest("/api/analysis/charts/"+name, pricesCSV))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
			assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
		})
	}
}

func TestAnalysisHandler_ChartErrors(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, csvRequest("/api/analysis/charts/pie", pricesCSV))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CHART_NOT_FOUND", decodeJSON(t, rec)["error_code"])

	rec = serve(t, router, csvRequest("/api/analysis/charts/"+charts.ClosingPriceChart, "Open,Close\n1,2\n2,3\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "CHART_UNAVAILABLE", decodeJSON(t, rec)["error_code"])
}

func TestAnalysisHandler_Workbook(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, multipartRequest(t, "/api/analysis/workbook", "file", "prices.csv", pricesCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="prices_analysis.xlsx"`, rec.Header().Get("Content-Disposition"))

	fx, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer fx.Close()
	assert.Equal(t, "Data", fx.GetSheetList()[0])
}

func TestAnalysisHandler_Errors(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{
			name:   "missing file field",
			req:    multipartRequest(t, "/api/analysis", "other", "prices.csv", pricesCSV),
			status: http.StatusBadRequest,
			code:   "MISSING_FILE",
		},
		{
			name:   "empty csv",
			req:    csvRequest("/api/analysis", ""),
			status: http.StatusBadRequest,
			code:   string(apierrors.ErrTypeParsing),
		},
		{
			name:   "ragged csv",
			req:    csvRequest("/api/analysis/results", "a,b\n1,2,3\n"),
			status: http.StatusBadRequest,
			code:   string(apierrors.ErrTypeParsing),
		},
		{
			name:   "body too large",
			req:    csvRequest("/api/analysis", "Open,Close\n"+strings.Repeat("1,2\n", 2000)),
			status: http.StatusRequestEntityTooLarge,
		},
		{
			name: "unsupported media type",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader("{}"))
				req.Header.Set("Content-Type", "application/json")
				return req
			}(),
			status: http.StatusUnsupportedMediaType,
			code:   "UNSUPPORTED_MEDIA_TYPE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, router, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decodeJSON(t, rec)
			assert.Equal(t, float64(tt.status), body["status"])
			if tt.code != "" {
				assert.Equal(t, tt.code, body["error_code"])
			}
		})
	}
}

func TestHTMLHandler(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `name="file"`)

	rec = serve(t, router, multipartRequest(t, "/analyze", "file", "prices.csv", pricesCSV))
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "data:image/png;base64,")
	assert.Equal(t, 3, strings.Count(page, "<img "))
	assert.Contains(t, page, "Closing Price Over Time")
	assert.Contains(t, page, domain.KeyReturnDistribution)
	assert.Contains(t, page, "<th>Symbol</th>")

	rec = serve(t, router, multipartRequest(t, "/analyze", "file", "empty.csv", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="error"`)
}

func TestHealthHandler(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		path   string
		status string
	}{
		{"/api/health", "ok"},
		{"/api/health/ready", "ready"},
		{"/api/health/live", "alive"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(t, router, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.status, decodeJSON(t, rec)["status"])
		})
	}

	rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeJSON(t, rec), "api_version")
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"prices.csv", "prices.csv"},
		{"C:\\Users\\me\\prices.csv", "prices.csv"},
		{"../../etc/passwd", "passwd"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in), tt.in)
	}
}
