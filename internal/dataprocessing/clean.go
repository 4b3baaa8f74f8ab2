package dataprocessing

import (
	"context"
	"strings"
	"time"

	"stocklens/internal/errors"
	"stocklens/internal/table"
	"stocklens/pkg/contracts/domain"
)

// DefaultDateLayouts are tried in order when no layouts are configured
// Single-digit month and day layouts also accept zero-padded input.
var DefaultDateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
	"2-Jan-2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
	"2-1-2006",
}

// CleanOptions controls Clean
type CleanOptions struct {
	// DateLayouts are the time.Parse layouts accepted for the Date column
	DateLayouts []string
	// SortByDate orders the remaining rows by Date ascending
	SortByDate bool
}

// Clean normalizes the Date column, drops incomplete and duplicate rows and
// optionally sorts by date. It mutates t in place and is idempotent.
func Clean(ctx context.Context, t *table.Table, opts CleanOptions) (domain.CleaningReport, error) {
	report := domain.CleaningReport{}
	if t == nil {
		return report, errors.NewAppValidationError("clean: nil table")
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	layouts := opts.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	report.RowsIn = t.Len()
	hasDate := t.HasColumn(ColumnDate)

	if hasDate {
		t.MapColumn(ColumnDate, func(v table.Value) table.Value {
			if v.IsMissing() || v.Kind == table.ValueDate {
				return v
			}
			parsed, ok := ParseDate(v.String(), layouts)
			if !ok {
				report.DatesCoerced++
				return table.Missing()
			}
			return table.Date(parsed)
		})
		t.SetColumnKind(ColumnDate, table.KindDate)
	}

	report.MissingDropped = t.Filter(func(row []table.Value) bool {
		for _, v := range row {
			if v.IsMissing() {
				return false
			}
		}
		return true
	})

	seen := make(map[string]struct{}, t.Len())
	report.DuplicatesDropped = t.Filter(func(row []table.Value) bool {
		key := table.RowKey(row)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})

	if opts.SortByDate && hasDate {
		SortByDate(t)
		report.Sorted = true
	}

	report.RowsOut = t.Len()
	return report, nil
}

// SortByDate stably orders rows by the Date column ascending.
// Rows whose Date is not a date sort last.
func SortByDate(t *table.Table) {
	names := t.ColumnNames()
	idx := -1
	for i, name := range names {
		if name == ColumnDate {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	t.SortStable(func(a, b []table.Value) bool {
		da, db := a[idx], b[idx]
		if da.Kind != table.ValueDate {
			return false
		}
		if db.Kind != table.ValueDate {
			return true
		}
		return da.Time.Before(db.Time)
	})
}

// ParseDate parses s with the first matching layout
func ParseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
