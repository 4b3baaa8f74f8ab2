package dataprocessing

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"stocklens/pkg/contracts/domain"
)

// densityPoints is the number of samples taken from the density curve
const densityPoints = 200

// ReturnDistribution bins the finite values into equal-width bins spanning
// their range and overlays a Gaussian kernel density estimate scaled to bin
// counts. A constant sample is centred in a unit-wide range.
func ReturnDistribution(column string, values []float64, bins int) domain.Distribution {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}

	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			xs = append(xs, v)
		}
	}

	dist := domain.Distribution{Column: column, Samples: len(xs)}
	if len(xs) == 0 {
		return dist
	}

	lo, hi := floats.Min(xs), floats.Max(xs)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	dist.Width = width

	dist.Bins = make([]domain.HistogramBin, bins)
	for i := range dist.Bins {
		dist.Bins[i].Low = lo + float64(i)*width
		dist.Bins[i].High = lo + float64(i+1)*width
	}
	dist.Bins[bins-1].High = hi
	for _, x := range xs {
		idx := int((x - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		dist.Bins[idx].Count++
	}

	dist.Density = kernelDensity(xs, lo, hi, width)
	return dist
}

// kernelDensity evaluates a Gaussian KDE with Scott's bandwidth over [lo, hi].
// Values are multiplied by n*width so the curve overlays bin counts.
func kernelDensity(xs []float64, lo, hi, width float64) []domain.DensityPoint {
	n := float64(len(xs))
	if len(xs) < 2 {
		return nil
	}
	std := stat.StdDev(xs, nil)
	if std == 0 || math.IsNaN(std) {
		return nil
	}
	bandwidth := std * math.Pow(n, -1.0/5.0)

	points := make([]domain.DensityPoint, densityPoints)
	step := (hi - lo) / float64(densityPoints-1)
	for i := range points {
		x := lo + float64(i)*step
		sum := 0.0
		for _, xi := range xs {
			sum += distuv.UnitNormal.Prob((x - xi) / bandwidth)
		}
		density := sum / (n * bandwidth)
		points[i] = domain.DensityPoint{X: x, Y: density * n * width}
	}
	return points
}
