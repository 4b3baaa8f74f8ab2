package validation

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklens/internal/config"
	apperrors "stocklens/internal/errors"
)

func testValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestFileValidator_ValidateInputFile(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantErr   error
	}{
		{
			name: "csv file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "prices.csv")
				require.NoError(t, os.WriteFile(path, []byte("Open,Close\n1,2\n"), 0644))
				return path
			},
		},
		{
			name: "unusual extension only warns",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "prices.dat")
				require.NoError(t, os.WriteFile(path, []byte("Open,Close\n1,2\n"), 0644))
				return path
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			wantErr: apperrors.ErrFileNotFound,
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			wantErr: apperrors.ErrValidation,
		},
		{
			name: "empty path",
			setupFunc: func(t *testing.T) string {
				return ""
			},
			wantErr: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testValidator().ValidateInputFile(tt.setupFunc(t))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "charts")
	require.NoError(t, testValidator().ValidateOutputDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write probe must be removed")

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	err = testValidator().ValidateOutputDirectory(filepath.Join(file, "sub"))
	assert.True(t, errors.Is(err, apperrors.ErrStorage), "got %v", err)
}

func TestFileValidator_ValidateOutputs(t *testing.T) {
	base := t.TempDir()
	paths := config.OutputPaths{
		ChartsDir:    filepath.Join(base, "charts"),
		WorkbookPath: filepath.Join(base, "reports", "analysis.xlsx"),
	}
	require.NoError(t, testValidator().ValidateOutputs(paths))

	assert.DirExists(t, paths.ChartsDir)
	assert.DirExists(t, filepath.Join(base, "reports"))
	assert.NoDirExists(t, filepath.Join(base, "csv"))

	assert.NoError(t, testValidator().ValidateOutputs(config.OutputPaths{}))
}
