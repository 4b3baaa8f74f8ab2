package report

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklens/internal/ingest"
	"stocklens/pkg/contracts/domain"
)

func TestConsole_Preview(t *testing.T) {
	tbl, err := ingest.ReadCSV(context.Background(),
		strings.NewReader("Symbol,Close\nAAA,1\nBBB,NA\nCCC,3\nDDD,4\n"), ingest.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	NewConsole(&buf, true).Preview(tbl, 2)

	out := buf.String()
	assert.Contains(t, out, "DATA PREVIEW (2 of 4 rows)")
	assert.Contains(t, out, "AAA")
	assert.Contains(t, out, "NaN")
	assert.NotContains(t, out, "CCC")
}

func TestConsole_Rankings(t *testing.T) {
	rankings := domain.Rankings{
		TopPerformers:   []domain.GroupStat{{Key: "AAA", Mean: 2.5, Std: 1, Count: 4}},
		Underperformers: []domain.GroupStat{{Key: "BBB", Mean: -1.25, Std: domain.Float(math.NaN()), Count: 1}},
	}

	var buf bytes.Buffer
	NewConsole(&buf, true).Rankings(rankings, "Daily Change %")

	out := buf.String()
	for _, want := range []string{"TOP PERFORMERS", "UNDERPERFORMERS", "MOST VOLATILE", "AAA", "2.5000", "-1.2500", "no groups"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "colors disabled")
}

func TestConsole_DescribeAndMonthly(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.Describe([]domain.ColumnSummary{{Column: "Close", Count: 3, Mean: 2, Std: 1, Min: 1, Q25: 1.5, Median: 2, Q75: 2.5, Max: 3}})
	c.Monthly([]domain.MonthlyAggregate{
		{Month: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), SharesTraded: 150, AverageClose: 12, Rows: 2},
		{Month: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), SharesTraded: 500, AverageClose: 25, Rows: 2},
	}, 1)

	out := buf.String()
	assert.Contains(t, out, "SUMMARY STATISTICS")
	assert.Contains(t, out, "2.5000")
	assert.Contains(t, out, "MONTHLY AGGREGATION (1 of 2 months)")
	assert.Contains(t, out, "2024-01")
	assert.NotContains(t, out, "2024-02")
}

func TestConsole_Correlation(t *testing.T) {
	corr := domain.CorrelationTable{
		Columns: []string{"Open", "Close"},
		Values:  [][]float64{{1, -0.25}, {-0.25, 1}},
	}

	var buf bytes.Buffer
	NewConsole(&buf, true).Correlation(corr)

	out := buf.String()
	assert.Contains(t, out, "FEATURE CORRELATION")
	assert.Contains(t, out, "1.00")
	assert.Contains(t, out, "-0.25")
}

func TestConsole_JSON(t *testing.T) {
	var buf bytes.Buffer
	err := NewConsole(&buf, true).JSON(domain.AnalysisResults{
		CorrelationHeatmap: domain.CorrelationTable{Columns: []string{"Close"}, Values: [][]float64{{1}}},
		ReturnDistribution: []domain.Float{1.5, domain.Float(math.NaN())},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"Feature Correlation Heatmap"`)
	assert.Contains(t, out, `"NaN"`)
}

func TestConsole_Coefficient(t *testing.T) {
	plain := NewConsole(&bytes.Buffer{}, true)
	assert.Equal(t, "0.75", plain.coefficient(0.75))
	assert.Equal(t, "NaN", plain.coefficient(math.NaN()))

	colored := NewConsole(&bytes.Buffer{}, false)
	assert.Contains(t, colored.coefficient(-0.75), "-0.75")
}
