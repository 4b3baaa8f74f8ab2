package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// JSON keys of the analysis summary document
const (
	KeyCorrelationHeatmap = "Feature Correlation Heatmap"
	KeyReturnDistribution = "Daily Return Distribution"
)

// Float is a float64 whose JSON form survives NaN and infinities, which
// encode as the strings "NaN", "Infinity" and "-Infinity".
type Float float64

// MarshalJSON implements json.Marshaler
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler
func (f *Float) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*f = Float(math.NaN())
		case "Infinity":
			*f = Float(math.Inf(1))
		case "-Infinity":
			*f = Float(math.Inf(-1))
		default:
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid float %q", s)
			}
			*f = Float(v)
		}
		return nil
	}
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Floats converts a float64 slice for JSON encoding
func Floats(xs []float64) []Float {
	out := make([]Float, len(xs))
	for i, x := range xs {
		out[i] = Float(x)
	}
	return out
}

// CorrelationTable is a square coefficient matrix keyed by column name.
// It encodes as a nested object that keeps column order.
type CorrelationTable struct {
	Columns []string
	Values  [][]float64
}

// At returns the coefficient for a pair of columns
func (c CorrelationTable) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, name := range c.Columns {
		if name == a {
			i = k
		}
		if name == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return c.Values[i][j], true
}

// MarshalJSON implements json.Marshaler
func (c CorrelationTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, row := range c.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, row); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, col := range c.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, col); err != nil {
				return nil, err
			}
			v, err := Float(c.Values[i][j]).MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}

// AnalysisResults is the JSON summary document. It has exactly two keys.
type AnalysisResults struct {
	CorrelationHeatmap CorrelationTable `json:"Feature Correlation Heatmap"`
	ReturnDistribution []Float          `json:"Daily Return Distribution"`
}

// GroupStat summarizes one symbol's return column
type GroupStat struct {
	Key   string `json:"key"`
	Mean  Float  `json:"mean"`
	Std   Float  `json:"std"`
	Count int    `json:"count"`
}

// Rankings are the per-symbol leaderboards of the batch report
type Rankings struct {
	TopPerformers   []GroupStat `json:"top_performers"`
	Underperformers []GroupStat `json:"underperformers"`
	MostVolatile    []GroupStat `json:"most_volatile"`
}

// MonthlyAggregate holds one calendar month of trading
type MonthlyAggregate struct {
	Month        time.Time `json:"month"`
	SharesTraded Float     `json:"shares_traded"`
	AverageClose Float     `json:"average_close"`
	Rows         int       `json:"rows"`
}

// Label returns the month as YYYY-MM
func (m MonthlyAggregate) Label() string {
	return m.Month.Format("2006-01")
}

// ColumnSummary holds descriptive statistics of one numeric column
type ColumnSummary struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Mean   Float  `json:"mean"`
	Std    Float  `json:"std"`
	Min    Float  `json:"min"`
	Q25    Float  `json:"25%"`
	Median Float  `json:"50%"`
	Q75    Float  `json:"75%"`
	Max    Float  `json:"max"`
}

// HistogramBin is one bar of a value distribution
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// DensityPoint is one sample of a kernel density estimate scaled to counts
type DensityPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distribution describes the return column as a histogram with density
type Distribution struct {
	Column  string         `json:"column"`
	Bins    []HistogramBin `json:"bins"`
	Density []DensityPoint `json:"density"`
	Width   float64        `json:"bin_width"`
	Samples int            `json:"samples"`
}

// CleaningReport counts what cleaning changed
type CleaningReport struct {
	RowsIn            int  `json:"rows_in"`
	DatesCoerced      int  `json:"dates_coerced"`
	MissingDropped    int  `json:"missing_dropped"`
	DuplicatesDropped int  `json:"duplicates_dropped"`
	RowsOut           int  `json:"rows_out"`
	Sorted            bool `json:"sorted"`
}

// RunMetadata identifies an analysis run
type RunMetadata struct {
	RunID       string         `json:"run_id"`
	Variant     string         `json:"variant"`
	Source      string         `json:"source"`
	SourceBytes int64          `json:"source_bytes"`
	Digest      string         `json:"digest"`
	Columns     []string       `json:"columns"`
	Derived     []string       `json:"derived"`
	Cleaning    CleaningReport `json:"cleaning"`
	StartedAt   time.Time      `json:"started_at"`
	Duration    string         `json:"duration"`
}
