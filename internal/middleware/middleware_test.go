package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	apperrors "stocklens/internal/errors"
	"stocklens/internal/infrastructure"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func decodeProblem(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&problem))
	return problem
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		assert.Equal(t, seen, infrastructure.GetTraceID(r.Context()))
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})
}

func TestRecoverer(t *testing.T) {
	errorHandler := apperrors.NewErrorHandler(testLogger(), false)
	handler := RequestID(Recoverer(errorHandler)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	problem := decodeProblem(t, rec.Body)
	assert.Equal(t, float64(http.StatusInternalServerError), problem["status"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), problem["trace_id"])
}

func TestRateLimiter(t *testing.T) {
	errorHandler := apperrors.NewErrorHandler(testLogger(), false)
	limiter := NewRateLimiter(0.001, 1, errorHandler, testLogger())
	handler := limiter.Handler(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1000", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeProblem(t, rec.Body)["error_code"])
}

func TestMaxBodySize(t *testing.T) {
	var readErr error
	handler := MaxBodySize(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("abc")))
	assert.NoError(t, readErr)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("abcdef")))
	var maxErr *http.MaxBytesError
	assert.True(t, errors.As(readErr, &maxErr))
}

func TestTimeout(t *testing.T) {
	var hasDeadline bool
	handler := Timeout(5e9)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, hasDeadline)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "img-src 'self' data:")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestCORS(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:8080"}})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/api/analysis", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:8080", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestContentTypeValidator(t *testing.T) {
	errorHandler := apperrors.NewErrorHandler(testLogger(), false)
	handler := ContentTypeValidator(errorHandler, "multipart/form-data", "text/csv")(http.HandlerFunc(okHandler))

	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{"get passes", http.MethodGet, "", http.StatusOK},
		{"multipart", http.MethodPost, "multipart/form-data; boundary=x", http.StatusOK},
		{"csv", http.MethodPost, "text/csv; charset=utf-8", http.StatusOK},
		{"missing", http.MethodPost, "", http.StatusBadRequest},
		{"json", http.MethodPost, "application/json", http.StatusUnsupportedMediaType},
		{"malformed", http.MethodPost, "multipart/form-data; boundary", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/analysis", strings.NewReader("a"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestQueryParamValidator(t *testing.T) {
	v := NewQueryParamValidator(testLogger(), apperrors.NewErrorHandler(testLogger(), false))

	tests := []struct {
		query  string
		want   int
		ok     bool
		status int
	}{
		{"", 5, true, http.StatusOK},
		{"?rows=20", 20, true, http.StatusOK},
		{"?rows=abc", 0, false, http.StatusBadRequest},
		{"?rows=0", 0, false, http.StatusBadRequest},
		{"?rows=5000", 0, false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			got, ok := v.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), "rows", 1, 1000, 5)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	got, ok := v.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?format=json", nil), "format", []string{"json", "html"}, "html")
	assert.True(t, ok)
	assert.Equal(t, "json", got)

	rec = httptest.NewRecorder()
	_, ok = v.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?format=xml", nil), "format", []string{"json", "html"}, "html")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOTelMiddleware_RecordsRequests(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	mw, err := NewOTelMiddleware(&infrastructure.OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer("test"),
		Meter:  provider.Meter("test"),
		Logger: testLogger(),
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(mw.Handler)
	r.Post("/api/analysis", okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader("Open,Close\n1,2\n"))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "http_requests" {
				require.Len(t, sum.DataPoints, 1)
				route, _ := sum.DataPoints[0].Attributes.Value("route")
				assert.Equal(t, "/api/analysis", route.AsString())
			}
		}
	}
	assert.True(t, found["http_requests"])
	assert.True(t, found["http_request_duration"])
	assert.True(t, found["http_upload_size"])
}

func TestGetRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", GetRealIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", GetRealIP(req))
}
