package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stocklens/internal/charts"
	"stocklens/internal/config"
	apperrors "stocklens/internal/errors"
	"stocklens/internal/exporter"
	"stocklens/internal/pipeline"
)

const pricesCSV = `Date,Open,Close,Symbol,Shares Traded
2024-01-02,10,11,AAA,100
2024-01-03,11,10.5,BBB,200
2024-01-04,10.5,12,AAA,150
2024-02-01,12,12.6,BBB,300
2024-02-02,12.6,12,AAA,120
`

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newRunner(t *testing.T, variant string) *pipeline.Pipeline {
	t.Helper()
	cfg := config.Default().Analysis
	cfg.Variant = variant
	p, err := pipeline.New(cfg, nil, testLogger())
	require.NoError(t, err)
	return p
}

func newAnalysisService(t *testing.T) *AnalysisService {
	t.Helper()
	return NewAnalysisService(newRunner(t, config.VariantInteractive), AnalysisOptions{
		PreviewRows: 2,
		Chart:       charts.OptionsInches(4, 3),
	}, testLogger())
}

func TestAnalysisService_Summary(t *testing.T) {
	svc := newAnalysisService(t)

	res, err := svc.Analyze(context.Background(), "prices.csv", strings.NewReader(pricesCSV))
	require.NoError(t, err)

	summary := svc.Summary(res, 0)
	assert.Equal(t, "prices.csv", summary.Metadata.Source)
	assert.Equal(t, config.VariantInteractive, summary.Metadata.Variant)
	assert.Len(t, summary.Preview.Rows, 2)
	assert.Equal(t, 5, summary.Preview.Total)
	assert.Equal(t, res.Table.ColumnNames(), summary.Preview.Columns)
	assert.Equal(t, []string{
		charts.ClosingPriceChart,
		charts.CorrelationHeatmapChart,
		charts.ReturnDistributionChart,
	}, summary.Charts)

	require.NotEmpty(t, summary.Columns)
	assert.Equal(t, ColumnInfo{Name: "Date", Kind: "date"}, summary.Columns[0])

	full := svc.Summary(res, 10)
	assert.Len(t, full.Preview.Rows, 5)
}

func TestAnalysisService_AnalyzeErrors(t *testing.T) {
	svc := newAnalysisService(t)

	_, err := svc.Analyze(context.Background(), "empty.csv", strings.NewReader(""))
	assert.True(t, errors.Is(err, apperrors.ErrParse))

	_, err = svc.Analyze(context.Background(), "nil", nil)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestAnalysisService_Chart(t *testing.T) {
	svc := newAnalysisService(t)
	ctx := context.Background()
	res, err := svc.Analyze(ctx, "prices.csv", strings.NewReader(pricesCSV))
	require.NoError(t, err)

	for _, name := range []string{charts.ClosingPriceChart, charts.CorrelationHeatmapChart, charts.ReturnDistributionChart} {
		t.Run(name, func(t *testing.T) {
			data, err := svc.Chart(ctx, res, name)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, pngSignature))
		})
	}

	_, err = svc.Chart(ctx, res, "pie")
	assert.ErrorIs(t, err, ErrUnknownChart)

	rendered, err := svc.Charts(ctx, res)
	require.NoError(t, err)
	assert.Len(t, rendered, 3)
}

func TestAvailableCharts_WithoutDates(t *testing.T) {
	svc := newAnalysisService(t)
	res, err := svc.Analyze(context.Background(), "plain.csv", strings.NewReader("Open,Close\n1,2\n2,3\n3,5\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{charts.CorrelationHeatmapChart, charts.ReturnDistributionChart}, AvailableCharts(res))

	_, err = BuildChart(res, charts.ClosingPriceChart)
	assert.True(t, IsChartUnavailable(err))
}

func TestAnalysisService_Workbook(t *testing.T) {
	svc := newAnalysisService(t)
	ctx := context.Background()
	res, err := svc.Analyze(ctx, "prices.csv", strings.NewReader(pricesCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Workbook(ctx, &buf, res))

	fx, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer fx.Close()
	assert.Contains(t, fx.GetSheetList(), exporter.DataSheet)
	assert.Contains(t, fx.GetSheetList(), exporter.ChartsSheet)

	assert.ErrorIs(t, svc.Workbook(ctx, &buf, nil), ErrNoResult)
}

func TestArtifactService_Write(t *testing.T) {
	dir := t.TempDir()
	paths := config.OutputConfig{
		ChartsDir:    "charts",
		CSVDir:       "csv",
		WorkbookPath: "out/analysis.xlsx",
	}.ResolveOutputPaths(dir)

	res, err := newRunner(t, config.VariantBatch).Run(context.Background(),
		pipeline.Source{Reader: strings.NewReader(pricesCSV), Name: "stock_data.csv"})
	require.NoError(t, err)

	artifacts, err := NewArtifactService(paths, charts.OptionsInches(4, 3), testLogger()).Write(context.Background(), res)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "charts", charts.ClosingPriceChart+".png"),
		filepath.Join(dir, "charts", charts.CorrelationHeatmapChart+".png"),
	}, artifacts.Charts)
	assert.Equal(t, []string{
		filepath.Join(dir, "csv", "stock_data_derived.csv"),
		filepath.Join(dir, "csv", "stock_data_monthly.csv"),
		filepath.Join(dir, "csv", "stock_data_rankings.csv"),
	}, artifacts.CSV)
	assert.Equal(t, filepath.Join(dir, "out", "analysis.xlsx"), artifacts.Workbook)
	assert.Equal(t, 6, artifacts.Count())

	for _, path := range append(append([]string{}, artifacts.Charts...), artifacts.CSV...) {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
}

func TestArtifactService_NothingConfigured(t *testing.T) {
	res, err := newRunner(t, config.VariantBatch).Run(context.Background(),
		pipeline.Source{Reader: strings.NewReader(pricesCSV)})
	require.NoError(t, err)

	artifacts, err := NewArtifactService(config.OutputPaths{}, charts.DefaultOptions(), testLogger()).Write(context.Background(), res)
	require.NoError(t, err)
	assert.Zero(t, artifacts.Count())
}

func TestExportBaseName(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"stock_data.csv", "stock_data"},
		{"/data/prices.2024.csv", "prices.2024"},
		{"upload", "upload"},
		{"", "analysis"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, exportBaseName(tt.source))
		})
	}
}
