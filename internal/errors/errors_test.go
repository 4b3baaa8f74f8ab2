package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Is(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{
			name:     "not found matches sentinel",
			err:      NewNotFoundError("data.csv", nil),
			target:   ErrFileNotFound,
			expected: true,
		},
		{
			name:     "wrapped parse error matches sentinel",
			err:      fmt.Errorf("load: %w", NewParsingError("bad row", nil)),
			target:   ErrParse,
			expected: true,
		},
		{
			name:     "missing column does not match parse",
			err:      NewMissingColumnError("group stats", "Symbol"),
			target:   ErrParse,
			expected: false,
		},
		{
			name:     "missing column matches sentinel",
			err:      NewMissingColumnError("group stats", "Symbol"),
			target:   ErrMissingColumn,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, errors.Is(tt.err, tt.target))
		})
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewStorageError("write workbook", cause)

	assert.Equal(t, "[STORAGE] write workbook: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)

	plain := NewAppValidationError("window must be positive")
	assert.Equal(t, "[VALIDATION] window must be positive", plain.Error())
}

func TestTypeOf(t *testing.T) {
	errType, ok := TypeOf(fmt.Errorf("outer: %w", NewConfigError("bad", nil)))
	require.True(t, ok)
	assert.Equal(t, ErrTypeConfig, errType)

	_, ok = TypeOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorHandler_HandleError(t *testing.T) {
	handler := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "file not found",
			err:            NewNotFoundError("prices.csv", nil),
			expectedStatus: http.StatusNotFound,
			expectedType:   TypeDataNotFound,
		},
		{
			name:           "parse error",
			err:            NewParsingError("ragged row", nil),
			expectedStatus: http.StatusBadRequest,
			expectedType:   TypeParse,
		},
		{
			name:           "missing column",
			err:            NewMissingColumnError("monthly aggregation", "Shares Traded"),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedType:   TypeMissingColumn,
		},
		{
			name:           "api error",
			err:            ErrMissingFile,
			expectedStatus: http.StatusBadRequest,
			expectedType:   TypeValidation,
		},
		{
			name:           "unavailable chart",
			err:            New(http.StatusUnprocessableEntity, "CHART_UNAVAILABLE", "closing price needs a Date column"),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedType:   TypeChartUnavailable,
		},
		{
			name:           "oversized body",
			err:            fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10}),
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedType:   TypePayloadTooLarge,
		},
		{
			name:           "unknown error",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/analysis", nil)
			rec := httptest.NewRecorder()

			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.expectedStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedType, body["type"])
			assert.Equal(t, float64(tt.expectedStatus), body["status"])
			assert.Equal(t, "/api/analysis", body["instance"])
		})
	}
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeParse, "Malformed CSV", "line 3", "/api/analysis").
		WithExtension("column", "Close")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Close", decoded["column"])
	assert.Equal(t, "Malformed CSV", decoded["title"])
	assert.Equal(t, "line 3", decoded["detail"])
}
