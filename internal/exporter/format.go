package exporter

import (
	"math"
	"strconv"

	"stocklens/internal/table"
)

// formatFloat formats a value for CSV output. Undefined values are left empty.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatValue formats a table cell for CSV output
func formatValue(v table.Value) string {
	if v.IsMissing() {
		return ""
	}
	if v.Kind == table.ValueNumber {
		return formatFloat(v.Num)
	}
	return v.String()
}

// cellValue converts a float for a spreadsheet cell; undefined values become blank cells
func cellValue(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
