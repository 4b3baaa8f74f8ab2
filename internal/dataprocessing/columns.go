package dataprocessing

import "fmt"

// Well-known input columns
const (
	ColumnDate         = "Date"
	ColumnOpen         = "Open"
	ColumnClose        = "Close"
	ColumnSymbol       = "Symbol"
	ColumnSharesTraded = "Shares Traded"
)

// Derived return column names. The upload flow and the batch run label the
// same quantity differently.
const (
	ColumnDailyReturn = "Daily Return"
	ColumnDailyChange = "Daily Change %"
)

const (
	DefaultMovingAverageWindow = 7
	DefaultTopN                = 10
	DefaultHistogramBins       = 30
)

// MovingAverageColumn names the trailing-mean column for a window size
func MovingAverageColumn(window int) string {
	return fmt.Sprintf("Moving Avg (%d-day)", window)
}
