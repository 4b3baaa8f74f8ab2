package table

import (
	"math"
	"strconv"
	"time"
)

// ValueKind discriminates the contents of a Value
type ValueKind uint8

const (
	ValueMissing ValueKind = iota
	ValueNumber
	ValueString
	ValueDate
)

// Value is a single table cell. The zero Value is Missing.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Time time.Time
}

// Missing returns the missing value
func Missing() Value {
	return Value{}
}

// Number returns a numeric value. NaN is stored as Missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{Kind: ValueNumber, Num: f}
}

// String returns a text value
func String(s string) Value {
	return Value{Kind: ValueString, Str: s}
}

// Date returns a calendar date value
func Date(t time.Time) Value {
	return Value{Kind: ValueDate, Time: t}
}

// IsMissing reports whether the cell holds no value
func (v Value) IsMissing() bool {
	return v.Kind == ValueMissing
}

// Float returns the numeric content, NaN for anything that is not a number
func (v Value) Float() float64 {
	if v.Kind != ValueNumber {
		return math.NaN()
	}
	return v.Num
}

// Equal reports cell equality as used for duplicate detection
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueNumber:
		return v.Num == o.Num
	case ValueString:
		return v.Str == o.Str
	case ValueDate:
		return v.Time.Equal(o.Time)
	default:
		return true
	}
}

// key returns a string that is identical for Equal values
func (v Value) key() string {
	switch v.Kind {
	case ValueNumber:
		n := v.Num
		if n == 0 {
			// folds -0 into 0
			n = 0
		}
		return "n" + strconv.FormatFloat(n, 'g', -1, 64)
	case ValueString:
		return "s" + v.Str
	case ValueDate:
		return "d" + strconv.FormatInt(v.Time.UnixNano(), 10)
	default:
		return "m"
	}
}

// String renders the value for display. Missing renders as "NaN".
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueString:
		return v.Str
	case ValueDate:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 && v.Time.Nanosecond() == 0 {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return "NaN"
	}
}
