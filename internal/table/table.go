// Package table holds the in-memory tabular data model shared by every
// analysis stage: named, typed columns over rows of Values.
package table

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Kind is the inferred type of a column
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// Column describes one column of a Table
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"-"`
}

// Source describes where the table was read from
type Source struct {
	Name   string
	Bytes  int64
	Digest string
}

// Table is an ordered set of rows over ordered, named columns.
// A Table is owned by a single run and is not safe for concurrent mutation.
type Table struct {
	Source Source

	columns []Column
	index   map[string]int
	rows    [][]Value
}

// New creates an empty table. Column names must be unique.
func New(columns []Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		t.index[c.Name] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// Columns returns a copy of the column list
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// HasColumn reports whether the named column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// IsNumeric reports whether the named column exists and holds numbers
func (t *Table) IsNumeric(name string) bool {
	c, ok := t.Column(name)
	return ok && c.Kind == KindNumber
}

// NumericColumns returns the names of all number columns in order
func (t *Table) NumericColumns() []string {
	var names []string
	for _, c := range t.columns {
		if c.Kind == KindNumber {
			names = append(names, c.Name)
		}
	}
	return names
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns row i. The slice aliases table storage.
func (t *Table) Row(i int) []Value {
	return t.rows[i]
}

// Value returns the cell at row i of the named column
func (t *Table) Value(i int, name string) Value {
	c, ok := t.index[name]
	if !ok {
		return Missing()
	}
	return t.rows[i][c]
}

// AppendRow adds a row; its length must match the column count
func (t *Table) AppendRow(values []Value) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.columns))
	}
	t.rows = append(t.rows, values)
	return nil
}

// AddColumn appends a column holding one value per existing row
func (t *Table) AddColumn(col Column, values []Value) error {
	if _, dup := t.index[col.Name]; dup {
		return fmt.Errorf("duplicate column %q", col.Name)
	}
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %q has %d values, table has %d rows", col.Name, len(values), len(t.rows))
	}
	t.index[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], values[i])
	}
	return nil
}

// PutColumn replaces the named column's kind and values, or appends it when absent
func (t *Table) PutColumn(col Column, values []Value) error {
	c, ok := t.index[col.Name]
	if !ok {
		return t.AddColumn(col, values)
	}
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %q has %d values, table has %d rows", col.Name, len(values), len(t.rows))
	}
	t.columns[c].Kind = col.Kind
	for i, row := range t.rows {
		row[c] = values[i]
	}
	return nil
}

// SetColumnKind replaces the kind of an existing column
func (t *Table) SetColumnKind(name string, kind Kind) {
	if i, ok := t.index[name]; ok {
		t.columns[i].Kind = kind
	}
}

// MapColumn replaces every cell of the named column with fn(cell)
func (t *Table) MapColumn(name string, fn func(Value) Value) {
	c, ok := t.index[name]
	if !ok {
		return
	}
	for _, row := range t.rows {
		row[c] = fn(row[c])
	}
}

// Filter keeps the rows for which keep returns true, preserving order.
// It returns the number of rows removed.
func (t *Table) Filter(keep func(row []Value) bool) int {
	kept := t.rows[:0]
	for _, row := range t.rows {
		if keep(row) {
			kept = append(kept, row)
		}
	}
	removed := len(t.rows) - len(kept)
	for i := len(kept); i < len(t.rows); i++ {
		t.rows[i] = nil
	}
	t.rows = kept
	return removed
}

// SortStable orders rows by less, keeping the relative order of equal rows
func (t *Table) SortStable(less func(a, b []Value) bool) {
	sort.SliceStable(t.rows, func(i, j int) bool {
		return less(t.rows[i], t.rows[j])
	})
}

// RowKey returns a string identical for rows whose cells are all Equal
func RowKey(row []Value) string {
	var b strings.Builder
	for i, v := range row {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(v.key())
	}
	return b.String()
}

// Floats returns the named column as float64s with NaN for non-numeric cells
func (t *Table) Floats(name string) ([]float64, bool) {
	c, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[c].Float()
	}
	return out, true
}

// Times returns the named column as times; ok is false if any cell is not a date
func (t *Table) Times(name string) ([]time.Time, bool) {
	c, exists := t.index[name]
	if !exists {
		return nil, false
	}
	out := make([]time.Time, len(t.rows))
	for i, row := range t.rows {
		if row[c].Kind != ValueDate {
			return nil, false
		}
		out[i] = row[c].Time
	}
	return out, true
}

// Head returns a copy of the first n rows
func (t *Table) Head(n int) *Table {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	if n < 0 {
		n = 0
	}
	head, _ := New(t.columns)
	head.Source = t.Source
	for _, row := range t.rows[:n] {
		head.rows = append(head.rows, append([]Value(nil), row...))
	}
	return head
}

// Records renders every row as strings, the form CSV and HTML output need
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = v.String()
		}
		out[i] = rec
	}
	return out
}

// NonMissing drops NaN entries from xs
func NonMissing(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
