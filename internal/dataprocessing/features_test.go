package dataprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyReturns(t *testing.T) {
	got := DailyReturns(
		[]float64{100, 0, 50, math.NaN(), 200},
		[]float64{110, 5, 45, 10, math.NaN()},
	)

	assert.InDelta(t, 10.0, got[0], 1e-12)
	assert.True(t, math.IsNaN(got[1]), "open of zero is undefined")
	assert.InDelta(t, -10.0, got[2], 1e-12)
	assert.True(t, math.IsNaN(got[3]))
	assert.True(t, math.IsNaN(got[4]))
}

func TestMovingAverage(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	got := MovingAverage(closes, 7)
	require.Len(t, got, len(closes))
	for i := 0; i < 6; i++ {
		assert.True(t, math.IsNaN(got[i]), "index %d", i)
	}
	for i := 6; i < len(closes); i++ {
		sum := 0.0
		for j := i - 6; j <= i; j++ {
			sum += closes[j]
		}
		assert.InDelta(t, sum/7, got[i], 1e-12, "index %d", i)
	}
}

func TestMovingAverage_ShortInput(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3}, 7)
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
	assert.Empty(t, MovingAverage(nil, 7))
}

func TestDeriveFeatures(t *testing.T) {
	tbl := readTable(t, `Date,Open,Close,Symbol
2024-01-01,100,110,AAA
2024-01-02,0,10,AAA
2024-01-03,50,55,BBB
`)

	report, err := DeriveFeatures(tbl, FeatureOptions{ReturnColumn: ColumnDailyChange, MovingAverageWindow: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{ColumnDailyChange, "Moving Avg (2-day)"}, report.Derived)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, []string{"Date", "Open", "Close", "Symbol", ColumnDailyChange, "Moving Avg (2-day)"}, tbl.ColumnNames())
	assert.Equal(t, 3, tbl.Len())

	assert.InDelta(t, 10.0, tbl.Value(0, ColumnDailyChange).Num, 1e-12)
	assert.True(t, tbl.Value(1, ColumnDailyChange).IsMissing())
	assert.True(t, tbl.Value(0, "Moving Avg (2-day)").IsMissing())
	assert.InDelta(t, 60.0, tbl.Value(1, "Moving Avg (2-day)").Num, 1e-12)
	assert.InDelta(t, 32.5, tbl.Value(2, "Moving Avg (2-day)").Num, 1e-12)

	// re-running replaces rather than duplicates
	_, err = DeriveFeatures(tbl, FeatureOptions{ReturnColumn: ColumnDailyChange, MovingAverageWindow: 2})
	require.NoError(t, err)
	assert.Len(t, tbl.ColumnNames(), 6)
}

func TestDeriveFeatures_Defaults(t *testing.T) {
	tbl := readTable(t, "Open,Close\n100,110\n")

	report, err := DeriveFeatures(tbl, FeatureOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{ColumnDailyReturn, "Moving Avg (7-day)"}, report.Derived)
}

func TestDeriveFeatures_SkipsMissingInputs(t *testing.T) {
	tests := []struct {
		name        string
		csv         string
		wantDerived []string
		wantSkipped []string
	}{
		{
			name:        "no open",
			csv:         "Close\n1\n2\n",
			wantDerived: []string{"Moving Avg (7-day)"},
			wantSkipped: []string{ColumnDailyReturn},
		},
		{
			name:        "no close",
			csv:         "Open,Symbol\n1,AAA\n",
			wantDerived: nil,
			wantSkipped: []string{ColumnDailyReturn, "Moving Avg (7-day)"},
		},
		{
			name:        "text close",
			csv:         "Open,Close\n1,high\n",
			wantDerived: nil,
			wantSkipped: []string{ColumnDailyReturn, "Moving Avg (7-day)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := readTable(t, tt.csv)
			before := tbl.Len()

			report, err := DeriveFeatures(tbl, FeatureOptions{})
			require.NoError(t, err)

			assert.Equal(t, tt.wantDerived, report.Derived)
			var skipped []string
			for _, s := range report.Skipped {
				skipped = append(skipped, s.Column)
				assert.NotEmpty(t, s.Reason)
			}
			assert.Equal(t, tt.wantSkipped, skipped)
			assert.Equal(t, before, tbl.Len())
		})
	}
}
