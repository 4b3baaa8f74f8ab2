package dataprocessing

import (
	"fmt"
	"math"

	"stocklens/internal/errors"
	"stocklens/internal/table"
)

// FeatureOptions controls DeriveFeatures
type FeatureOptions struct {
	// ReturnColumn names the percentage return column
	ReturnColumn string
	// MovingAverageWindow is the trailing window over Close, in rows
	MovingAverageWindow int
}

// SkippedFeature records a derived column that could not be computed
type SkippedFeature struct {
	Column string
	Reason string
}

// FeatureReport lists what DeriveFeatures added and skipped
type FeatureReport struct {
	Derived []string
	Skipped []SkippedFeature
}

// DeriveFeatures appends the return and moving-average columns. Missing or
// non-numeric inputs skip the dependent feature instead of failing. Rows are
// never added or removed, and re-running replaces the derived columns.
func DeriveFeatures(t *table.Table, opts FeatureOptions) (FeatureReport, error) {
	var report FeatureReport
	if t == nil {
		return report, errors.NewAppValidationError("derive features: nil table")
	}
	if opts.ReturnColumn == "" {
		opts.ReturnColumn = ColumnDailyReturn
	}
	if opts.MovingAverageWindow <= 0 {
		opts.MovingAverageWindow = DefaultMovingAverageWindow
	}

	closes, haveClose := numericColumn(t, ColumnClose)
	opens, haveOpen := numericColumn(t, ColumnOpen)

	if haveOpen && haveClose {
		if err := t.PutColumn(table.Column{Name: opts.ReturnColumn, Kind: table.KindNumber}, numbers(DailyReturns(opens, closes))); err != nil {
			return report, fmt.Errorf("failed to add %s: %w", opts.ReturnColumn, err)
		}
		report.Derived = append(report.Derived, opts.ReturnColumn)
	} else {
		report.Skipped = append(report.Skipped, SkippedFeature{
			Column: opts.ReturnColumn,
			Reason: "requires numeric Open and Close columns",
		})
	}

	maName := MovingAverageColumn(opts.MovingAverageWindow)
	if haveClose {
		if err := t.PutColumn(table.Column{Name: maName, Kind: table.KindNumber}, numbers(MovingAverage(closes, opts.MovingAverageWindow))); err != nil {
			return report, fmt.Errorf("failed to add %s: %w", maName, err)
		}
		report.Derived = append(report.Derived, maName)
	} else {
		report.Skipped = append(report.Skipped, SkippedFeature{
			Column: maName,
			Reason: "requires a numeric Close column",
		})
	}

	return report, nil
}

// DailyReturns computes (close - open) / open * 100 per row.
// The result is NaN where open is zero or either input is NaN.
func DailyReturns(open, close []float64) []float64 {
	out := make([]float64, len(open))
	for i := range open {
		o, c := open[i], close[i]
		if o == 0 || math.IsNaN(o) || math.IsNaN(c) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (c - o) / o * 100
	}
	return out
}

// MovingAverage returns the trailing mean over window values ending at each
// index. The first window-1 entries, and any window holding NaN, are NaN.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if window <= 0 || i < window-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(window)
	}
	return out
}

func numericColumn(t *table.Table, name string) ([]float64, bool) {
	if !t.IsNumeric(name) {
		return nil, false
	}
	return t.Floats(name)
}

func numbers(xs []float64) []table.Value {
	out := make([]table.Value, len(xs))
	for i, x := range xs {
		out[i] = table.Number(x)
	}
	return out
}
