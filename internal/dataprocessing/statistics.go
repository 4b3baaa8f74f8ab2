package dataprocessing

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"stocklens/internal/errors"
	"stocklens/internal/table"
	"stocklens/pkg/contracts/domain"
)

// GroupStats groups rows by groupColumn and summarizes valueColumn per group.
// NaN values are ignored. Groups come back in ascending key order.
func GroupStats(t *table.Table, groupColumn, valueColumn string) ([]domain.GroupStat, error) {
	if err := requireColumns(t, "group statistics", groupColumn, valueColumn); err != nil {
		return nil, err
	}

	values, _ := t.Floats(valueColumn)
	groups := make(map[string][]float64)
	for i := 0; i < t.Len(); i++ {
		key := t.Value(i, groupColumn).String()
		if _, ok := groups[key]; !ok {
			groups[key] = nil
		}
		if !math.IsNaN(values[i]) {
			groups[key] = append(groups[key], values[i])
		}
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]domain.GroupStat, 0, len(keys))
	for _, key := range keys {
		xs := groups[key]
		out = append(out, domain.GroupStat{
			Key:   key,
			Mean:  domain.Float(mean(xs)),
			Std:   domain.Float(sampleStd(xs)),
			Count: len(xs),
		})
	}
	return out, nil
}

// RankGroups builds the three leaderboards, each holding at most n groups.
// Groups whose ranking metric is NaN are left out. Ties keep input order.
func RankGroups(stats []domain.GroupStat, n int) domain.Rankings {
	if n <= 0 {
		n = DefaultTopN
	}
	return domain.Rankings{
		TopPerformers:   rankBy(stats, n, byMean, true),
		Underperformers: rankBy(stats, n, byMean, false),
		MostVolatile:    rankBy(stats, n, byStd, true),
	}
}

func byMean(s domain.GroupStat) float64 { return float64(s.Mean) }

func byStd(s domain.GroupStat) float64 { return float64(s.Std) }

func rankBy(stats []domain.GroupStat, n int, metric func(domain.GroupStat) float64, descending bool) []domain.GroupStat {
	ranked := make([]domain.GroupStat, 0, len(stats))
	for _, s := range stats {
		if !math.IsNaN(metric(s)) {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if descending {
			return metric(ranked[i]) > metric(ranked[j])
		}
		return metric(ranked[i]) < metric(ranked[j])
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// MonthlyAggregates sums Shares Traded and averages Close per calendar month,
// months ascending. The Date column must already hold dates.
func MonthlyAggregates(t *table.Table) ([]domain.MonthlyAggregate, error) {
	if err := requireColumns(t, "monthly aggregation", ColumnDate, ColumnSharesTraded, ColumnClose); err != nil {
		return nil, err
	}
	if col, _ := t.Column(ColumnDate); col.Kind != table.KindDate {
		return nil, errors.NewAppValidationError("monthly aggregation: Date column holds no dates").
			WithContext("column", ColumnDate)
	}

	shares, _ := t.Floats(ColumnSharesTraded)
	closes, _ := t.Floats(ColumnClose)

	type bucket struct {
		shares []float64
		closes []float64
		rows   int
	}
	buckets := make(map[time.Time]*bucket)
	for i := 0; i < t.Len(); i++ {
		v := t.Value(i, ColumnDate)
		if v.Kind != table.ValueDate {
			continue
		}
		month := time.Date(v.Time.Year(), v.Time.Month(), 1, 0, 0, 0, 0, time.UTC)
		b, ok := buckets[month]
		if !ok {
			b = &bucket{}
			buckets[month] = b
		}
		b.rows++
		if !math.IsNaN(shares[i]) {
			b.shares = append(b.shares, shares[i])
		}
		if !math.IsNaN(closes[i]) {
			b.closes = append(b.closes, closes[i])
		}
	}

	months := make([]time.Time, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := make([]domain.MonthlyAggregate, 0, len(months))
	for _, m := range months {
		b := buckets[m]
		out = append(out, domain.MonthlyAggregate{
			Month:        m,
			SharesTraded: domain.Float(floats.Sum(b.shares)),
			AverageClose: domain.Float(mean(b.closes)),
			Rows:         b.rows,
		})
	}
	return out, nil
}

// Describe summarizes every numeric column: count, mean, sample standard
// deviation, min, quartiles and max. Quartiles interpolate linearly between
// the closest ranks.
func Describe(t *table.Table) []domain.ColumnSummary {
	var out []domain.ColumnSummary
	for _, name := range t.NumericColumns() {
		all, _ := t.Floats(name)
		xs := table.NonMissing(all)
		summary := domain.ColumnSummary{
			Column: name,
			Count:  len(xs),
			Mean:   domain.Float(mean(xs)),
			Std:    domain.Float(sampleStd(xs)),
			Min:    domain.Float(math.NaN()),
			Q25:    domain.Float(math.NaN()),
			Median: domain.Float(math.NaN()),
			Q75:    domain.Float(math.NaN()),
			Max:    domain.Float(math.NaN()),
		}
		if len(xs) > 0 {
			sorted := append([]float64(nil), xs...)
			sort.Float64s(sorted)
			summary.Min = domain.Float(floats.Min(sorted))
			summary.Q25 = domain.Float(Quantile(sorted, 0.25))
			summary.Median = domain.Float(Quantile(sorted, 0.5))
			summary.Q75 = domain.Float(Quantile(sorted, 0.75))
			summary.Max = domain.Float(floats.Max(sorted))
		}
		out = append(out, summary)
	}
	return out
}

// Quantile returns the p-quantile of sorted data using linear interpolation
// at rank p*(n-1).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 || p < 0 || p > 1 {
		return math.NaN()
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func requireColumns(t *table.Table, operation string, columns ...string) error {
	if t == nil {
		return errors.NewAppValidationError(operation + ": nil table")
	}
	for _, c := range columns {
		if !t.HasColumn(c) {
			return errors.NewMissingColumnError(operation, c)
		}
	}
	return nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.StdDev(xs, nil)
}
