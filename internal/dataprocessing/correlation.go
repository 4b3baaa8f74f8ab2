package dataprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"stocklens/internal/table"
	"stocklens/pkg/contracts/domain"
)

// CorrelationMatrix computes Pearson coefficients between every pair of
// numeric columns, using only rows where both values are present. Pairs with
// fewer than two such rows or with a constant side are NaN. The result is
// symmetric and its diagonal is 1 wherever the column varies.
func CorrelationMatrix(t *table.Table) domain.CorrelationTable {
	names := t.NumericColumns()
	columns := make([][]float64, len(names))
	for i, name := range names {
		columns[i], _ = t.Floats(name)
	}

	values := make([][]float64, len(names))
	for i := range values {
		values[i] = make([]float64, len(names))
	}
	for i := range names {
		for j := i; j < len(names); j++ {
			r := pairwisePearson(columns[i], columns[j])
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			values[i][j] = r
			values[j][i] = r
		}
	}

	return domain.CorrelationTable{Columns: names, Values: values}
}

func pairwisePearson(a, b []float64) float64 {
	x := make([]float64, 0, len(a))
	y := make([]float64, 0, len(b))
	for i := range a {
		if isFinite(a[i]) && isFinite(b[i]) {
			x = append(x, a[i])
			y = append(y, b[i])
		}
	}
	if len(x) < 2 || stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	return math.Max(-1, math.Min(1, r))
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
