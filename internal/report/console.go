// Package report prints analysis results as console tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	datatable "stocklens/internal/table"
	"stocklens/pkg/contracts/domain"
)

// Console renders report sections to a writer
type Console struct {
	out   io.Writer
	color bool
}

// NewConsole creates a console report writer. Colors are used unless noColor is set.
func NewConsole(out io.Writer, noColor bool) *Console {
	return &Console{out: out, color: !noColor}
}

func (c *Console) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	// keep the title on one line when the body is narrower
	t.Style().Size.WidthMin = text.StringWidthWithoutEscSequences(title) + 4
	return t
}

func (c *Console) render(t table.Writer) {
	t.Render()
	fmt.Fprintln(c.out)
}

// Preview prints the first n rows of the table
func (c *Console) Preview(t *datatable.Table, n int) {
	head := t.Head(n)

	tw := c.newTable(fmt.Sprintf("DATA PREVIEW (%d of %d rows)", head.Len(), t.Len()))
	header := table.Row{}
	for _, name := range head.ColumnNames() {
		header = append(header, name)
	}
	tw.AppendHeader(header)
	for _, rec := range head.Records() {
		row := make(table.Row, len(rec))
		for i, cell := range rec {
			row[i] = cell
		}
		tw.AppendRow(row)
	}
	c.render(tw)
}

// Cleaning prints what the cleaning stage removed
func (c *Console) Cleaning(r domain.CleaningReport) {
	tw := c.newTable("CLEANING")
	tw.AppendRows([]table.Row{
		{"Rows read", r.RowsIn},
		{"Unparseable dates", r.DatesCoerced},
		{"Rows with missing values", r.MissingDropped},
		{"Duplicate rows", r.DuplicatesDropped},
		{"Rows retained", r.RowsOut},
		{"Sorted by date", r.Sorted},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 26, Align: text.AlignLeft},
		{Number: 2, WidthMin: 10, Align: text.AlignRight},
	})
	c.render(tw)
}

// Describe prints the summary statistics of every numeric column
func (c *Console) Describe(summaries []domain.ColumnSummary) {
	tw := c.newTable("SUMMARY STATISTICS")
	tw.AppendHeader(table.Row{"Column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"})
	for _, s := range summaries {
		tw.AppendRow(table.Row{
			s.Column, s.Count,
			formatFloat(s.Mean), formatFloat(s.Std), formatFloat(s.Min),
			formatFloat(s.Q25), formatFloat(s.Median), formatFloat(s.Q75), formatFloat(s.Max),
		})
	}
	c.render(tw)
}

// Rankings prints the three per-symbol leaderboards
func (c *Console) Rankings(r domain.Rankings, metric string) {
	c.rankingTable("TOP PERFORMERS", metric, r.TopPerformers)
	c.rankingTable("UNDERPERFORMERS", metric, r.Underperformers)
	c.rankingTable("MOST VOLATILE", metric, r.MostVolatile)
}

func (c *Console) rankingTable(title, metric string, stats []domain.GroupStat) {
	tw := c.newTable(title)
	tw.AppendHeader(table.Row{"#", "Symbol", "Mean " + metric, "Std " + metric, "Rows"})
	for i, s := range stats {
		tw.AppendRow(table.Row{i + 1, s.Key, c.signed(float64(s.Mean)), formatFloat(s.Std), s.Count})
	}
	if len(stats) == 0 {
		tw.AppendRow(table.Row{"-", "no groups", "", "", ""})
	}
	c.render(tw)
}

// Monthly prints up to n monthly aggregates, all of them when n <= 0
func (c *Console) Monthly(months []domain.MonthlyAggregate, n int) {
	shown := months
	if n > 0 && len(shown) > n {
		shown = shown[:n]
	}
	tw := c.newTable(fmt.Sprintf("MONTHLY AGGREGATION (%d of %d months)", len(shown), len(months)))
	tw.AppendHeader(table.Row{"Month", "Shares Traded", "Average Close", "Rows"})
	for _, m := range shown {
		tw.AppendRow(table.Row{m.Label(), formatFloat(m.SharesTraded), formatFloat(m.AverageClose), m.Rows})
	}
	c.render(tw)
}

// Correlation prints the coefficient matrix, colored by sign when enabled
func (c *Console) Correlation(corr domain.CorrelationTable) {
	tw := c.newTable("FEATURE CORRELATION")
	header := table.Row{""}
	for _, name := range corr.Columns {
		header = append(header, name)
	}
	tw.AppendHeader(header)
	for i, name := range corr.Columns {
		row := table.Row{name}
		for j := range corr.Columns {
			row = append(row, c.coefficient(corr.Values[i][j]))
		}
		tw.AppendRow(row)
	}
	c.render(tw)
}

// JSON prints v as indented JSON
func (c *Console) JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

func (c *Console) signed(v float64) string {
	s := formatFloat(domain.Float(v))
	if !c.color || math.IsNaN(v) {
		return s
	}
	if v < 0 {
		return text.Colors{text.FgRed}.Sprint(s)
	}
	return text.Colors{text.FgGreen}.Sprint(s)
}

func (c *Console) coefficient(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	s := fmt.Sprintf("%.2f", v)
	if !c.color {
		return s
	}
	switch {
	case v >= 0.5:
		return text.Colors{text.FgRed, text.Bold}.Sprint(s)
	case v <= -0.5:
		return text.Colors{text.FgBlue, text.Bold}.Sprint(s)
	case v > 0:
		return text.Colors{text.FgHiRed}.Sprint(s)
	case v < 0:
		return text.Colors{text.FgHiBlue}.Sprint(s)
	}
	return s
}

func formatFloat(f domain.Float) string {
	v := float64(f)
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
