package dataprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnDistribution(t *testing.T) {
	values := []float64{-2, -1, -1, 0, 0, 0, 1, 1, 2, math.NaN(), math.Inf(1)}

	dist := ReturnDistribution(ColumnDailyReturn, values, 4)

	assert.Equal(t, ColumnDailyReturn, dist.Column)
	assert.Equal(t, 9, dist.Samples)
	require.Len(t, dist.Bins, 4)
	assert.InDelta(t, 1.0, dist.Width, 1e-12)
	assert.Equal(t, -2.0, dist.Bins[0].Low)
	assert.Equal(t, 2.0, dist.Bins[3].High)

	counts := make([]int, len(dist.Bins))
	total := 0
	for i, b := range dist.Bins {
		counts[i] = b.Count
		total += b.Count
	}
	// the last bin is closed on the right
	assert.Equal(t, []int{1, 2, 3, 3}, counts)
	assert.Equal(t, 9, total)

	require.Len(t, dist.Density, densityPoints)
	assert.Equal(t, -2.0, dist.Density[0].X)
	assert.InDelta(t, 2.0, dist.Density[len(dist.Density)-1].X, 1e-9)

	// scaled to counts, the curve peaks near the tallest bars
	peak := dist.Density[0]
	for _, p := range dist.Density {
		assert.GreaterOrEqual(t, p.Y, 0.0)
		if p.Y > peak.Y {
			peak = p
		}
	}
	assert.InDelta(t, 0.0, peak.X, 0.5)
	assert.Greater(t, peak.Y, 1.0)
}

func TestReturnDistribution_DegenerateInput(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		dist := ReturnDistribution(ColumnDailyReturn, []float64{math.NaN()}, 30)
		assert.Zero(t, dist.Samples)
		assert.Empty(t, dist.Bins)
		assert.Empty(t, dist.Density)
	})

	t.Run("constant", func(t *testing.T) {
		dist := ReturnDistribution(ColumnDailyReturn, []float64{3, 3, 3}, 0)
		require.Len(t, dist.Bins, DefaultHistogramBins)
		assert.Equal(t, 2.5, dist.Bins[0].Low)
		assert.Equal(t, 3.5, dist.Bins[DefaultHistogramBins-1].High)

		total := 0
		for _, b := range dist.Bins {
			total += b.Count
		}
		assert.Equal(t, 3, total)
		assert.Empty(t, dist.Density, "no spread, no density")
	})
}
