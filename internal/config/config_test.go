package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stocklens/internal/errors"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stocklens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "stock_data.csv", cfg.Analysis.InputPath)
	assert.Equal(t, VariantBatch, cfg.Analysis.Variant)
	assert.Equal(t, 7, cfg.Analysis.MovingAverageWindow)
	assert.Equal(t, 10, cfg.Analysis.TopN)
	assert.Equal(t, 30, cfg.Analysis.HistogramBins)
	assert.Equal(t, DefaultDateLayouts, cfg.Analysis.DateLayouts)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfigFile(t, `
analysis:
  input_path: data/prices.csv
  variant: interactive
  top_n: 5
server:
  port: 9090
  read_timeout: 5s
`)
	t.Setenv("STOCKLENS_ANALYSIS_TOP_N", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/prices.csv", cfg.Analysis.InputPath)
	assert.Equal(t, VariantInteractive, cfg.Analysis.Variant)
	assert.Equal(t, 3, cfg.Analysis.TopN, "environment overrides file")
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 7, cfg.Analysis.MovingAverageWindow, "unset keys keep defaults")
	assert.False(t, cfg.Analysis.SortByDate())
}

func TestLoad_DateLayoutsFromEnv(t *testing.T) {
	t.Setenv("STOCKLENS_ANALYSIS_DATE_LAYOUTS", "Jan 2, 2006| 02/01/2006 ")

	cfg, err := Load(writeConfigFile(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, LayoutList{"Jan 2, 2006", "02/01/2006"}, cfg.Analysis.DateLayouts)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{
			name:    "unknown variant",
			content: "analysis:\n  variant: streaming\n",
		},
		{
			name:    "zero window",
			content: "analysis:\n  moving_average_window: 0\n",
		},
		{
			name:    "bad port from env",
			content: "{}",
			env:     map[string]string{"STOCKLENS_SERVER_PORT": "70000"},
		},
		{
			name:    "malformed yaml",
			content: "analysis: [",
		},
		{
			name:    "file logging without path",
			content: "logging:\n  output: file\n  file_path: \"\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(writeConfigFile(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfig))
		})
	}
}

func TestOutputPaths(t *testing.T) {
	base := t.TempDir()
	out := OutputConfig{
		ChartsDir:    "charts",
		WorkbookPath: filepath.Join(base, "book", "analysis.xlsx"),
	}

	paths := out.ResolveOutputPaths(base)
	assert.Equal(t, filepath.Join(base, "charts"), paths.ChartsDir)
	assert.Empty(t, paths.CSVDir)
	assert.True(t, paths.Any())

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.ChartsDir)
	assert.DirExists(t, filepath.Join(base, "book"))

	assert.False(t, OutputConfig{}.ResolveOutputPaths(base).Any())
}
