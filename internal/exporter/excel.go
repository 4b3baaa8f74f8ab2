package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"stocklens/internal/dataprocessing"
	apperrors "stocklens/internal/errors"
	"stocklens/internal/table"
	"stocklens/pkg/contracts/domain"
)

// Sheet names of the analysis workbook
const (
	DataSheet        = "Data"
	CorrelationSheet = "Correlation"
	SummarySheet     = "Summary"
	MonthlySheet     = "Monthly"
	RankingsSheet    = "Rankings"
	ChartsSheet      = "Charts"
)

// WorkbookInput collects what goes into the workbook. Nil or empty parts
// are left out.
type WorkbookInput struct {
	Table        *table.Table
	Correlation  domain.CorrelationTable
	Summaries    []domain.ColumnSummary
	Monthly      []domain.MonthlyAggregate
	Rankings     *domain.Rankings
	Distribution *domain.Distribution
}

type workbookStyles struct {
	header int
	date   int
	number int
}

// BuildWorkbook assembles the analysis workbook in memory. The caller closes it.
func BuildWorkbook(in WorkbookInput) (*excelize.File, error) {
	if in.Table == nil {
		return nil, apperrors.NewAppValidationError("workbook: nil table")
	}

	fx := excelize.NewFile()
	if err := fx.SetSheetName(fx.GetSheetName(0), DataSheet); err != nil {
		fx.Close()
		return nil, err
	}

	styles, err := createStyles(fx)
	if err != nil {
		fx.Close()
		return nil, fmt.Errorf("failed to create workbook styles: %w", err)
	}

	steps := []func() error{
		func() error { return writeDataSheet(fx, in.Table, styles) },
		func() error { return writeCorrelationSheet(fx, in.Correlation, styles) },
		func() error { return writeSummarySheet(fx, in.Summaries, styles) },
		func() error { return writeMonthlySheet(fx, in.Monthly, styles) },
		func() error { return writeRankingsSheet(fx, in.Rankings, styles) },
		func() error { return writeChartsSheet(fx, in.Table, in.Distribution, styles) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			fx.Close()
			return nil, err
		}
	}

	fx.SetActiveSheet(0)
	return fx, nil
}

// WriteWorkbook builds the workbook and writes it to w
func WriteWorkbook(w io.Writer, in WorkbookInput) error {
	fx, err := BuildWorkbook(in)
	if err != nil {
		return err
	}
	defer fx.Close()

	if _, err := fx.WriteTo(w); err != nil {
		return apperrors.NewStorageError("failed to write workbook", err)
	}
	return nil
}

// SaveWorkbook writes the workbook to path, creating its directory
func SaveWorkbook(path string, in WorkbookInput) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperrors.NewStorageError("failed to create directory", err).WithContext("path", dir)
		}
	}

	fx, err := BuildWorkbook(in)
	if err != nil {
		return err
	}
	defer fx.Close()

	if err := fx.SaveAs(path); err != nil {
		return apperrors.NewStorageError("failed to save workbook", err).WithContext("path", path)
	}
	return nil
}

func createStyles(fx *excelize.File) (workbookStyles, error) {
	var styles workbookStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.date, err = fx.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return styles, err
	}

	styles.number, err = fx.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return styles, err
	}
	return styles, nil
}

func writeHeader(fx *excelize.File, sheet string, headers []string, styles workbookStyles) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := fx.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}
	if len(headers) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return err
	}
	return fx.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeRow(fx *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return fx.SetSheetRow(sheet, cell, &values)
}

func writeDataSheet(fx *excelize.File, t *table.Table, styles workbookStyles) error {
	columns := t.Columns()
	names := t.ColumnNames()
	if err := writeHeader(fx, DataSheet, names, styles); err != nil {
		return fmt.Errorf("failed to write data header: %w", err)
	}

	for i := 0; i < t.Len(); i++ {
		row := make([]interface{}, len(columns))
		for j, v := range t.Row(i) {
			switch v.Kind {
			case table.ValueNumber:
				row[j] = cellValue(v.Num)
			case table.ValueDate:
				row[j] = v.Time
			case table.ValueString:
				row[j] = v.Str
			}
		}
		if err := writeRow(fx, DataSheet, i+2, row); err != nil {
			return fmt.Errorf("failed to write data row %d: %w", i, err)
		}
	}

	for j, c := range columns {
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return err
		}
		if err := fx.SetColWidth(DataSheet, col, col, 16); err != nil {
			return err
		}
		if t.Len() == 0 {
			continue
		}
		style := styles.number
		if c.Kind == table.KindDate {
			style = styles.date
		} else if c.Kind != table.KindNumber {
			continue
		}
		if err := fx.SetCellStyle(DataSheet, col+"2", fmt.Sprintf("%s%d", col, t.Len()+1), style); err != nil {
			return err
		}
	}
	return nil
}

func writeCorrelationSheet(fx *excelize.File, corr domain.CorrelationTable, styles workbookStyles) error {
	if len(corr.Columns) == 0 {
		return nil
	}
	if _, err := fx.NewSheet(CorrelationSheet); err != nil {
		return err
	}

	headers := append([]string{""}, corr.Columns...)
	if err := writeHeader(fx, CorrelationSheet, headers, styles); err != nil {
		return fmt.Errorf("failed to write correlation header: %w", err)
	}
	for i, name := range corr.Columns {
		row := []interface{}{name}
		for j := range corr.Columns {
			row = append(row, cellValue(corr.Values[i][j]))
		}
		if err := writeRow(fx, CorrelationSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := fx.SetColWidth(CorrelationSheet, "A", "A", 22); err != nil {
		return err
	}

	n := len(corr.Columns)
	last, err := excelize.CoordinatesToCellName(n+1, n+1)
	if err != nil {
		return err
	}
	return fx.SetConditionalFormat(CorrelationSheet, "B2:"+last, []excelize.ConditionalFormatOptions{{
		Type:     "3_color_scale",
		Criteria: "=",
		MinType:  "num",
		MidType:  "num",
		MaxType:  "num",
		MinValue: "-1",
		MidValue: "0",
		MaxValue: "1",
		MinColor: "#3B4CC0",
		MidColor: "#F2F2F2",
		MaxColor: "#B40426",
	}})
}

func writeSummarySheet(fx *excelize.File, summaries []domain.ColumnSummary, styles workbookStyles) error {
	if len(summaries) == 0 {
		return nil
	}
	if _, err := fx.NewSheet(SummarySheet); err != nil {
		return err
	}
	headers := []string{"Column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	if err := writeHeader(fx, SummarySheet, headers, styles); err != nil {
		return err
	}
	for i, s := range summaries {
		row := []interface{}{
			s.Column, s.Count,
			cellValue(float64(s.Mean)), cellValue(float64(s.Std)), cellValue(float64(s.Min)),
			cellValue(float64(s.Q25)), cellValue(float64(s.Median)), cellValue(float64(s.Q75)), cellValue(float64(s.Max)),
		}
		if err := writeRow(fx, SummarySheet, i+2, row); err != nil {
			return err
		}
	}
	return fx.SetColWidth(SummarySheet, "A", "A", 22)
}

func writeMonthlySheet(fx *excelize.File, months []domain.MonthlyAggregate, styles workbookStyles) error {
	if len(months) == 0 {
		return nil
	}
	if _, err := fx.NewSheet(MonthlySheet); err != nil {
		return err
	}
	if err := writeHeader(fx, MonthlySheet, []string{"Month", "Shares Traded", "Average Close", "Rows"}, styles); err != nil {
		return err
	}
	for i, m := range months {
		row := []interface{}{m.Label(), cellValue(float64(m.SharesTraded)), cellValue(float64(m.AverageClose)), m.Rows}
		if err := writeRow(fx, MonthlySheet, i+2, row); err != nil {
			return err
		}
	}
	return fx.SetColWidth(MonthlySheet, "A", "D", 16)
}

func writeRankingsSheet(fx *excelize.File, rankings *domain.Rankings, styles workbookStyles) error {
	if rankings == nil {
		return nil
	}
	if _, err := fx.NewSheet(RankingsSheet); err != nil {
		return err
	}
	if err := writeHeader(fx, RankingsSheet, []string{"Board", "Rank", "Symbol", "Mean", "Std", "Rows"}, styles); err != nil {
		return err
	}
	rowNum := 2
	boards := []struct {
		name  string
		stats []domain.GroupStat
	}{
		{"Top performers", rankings.TopPerformers},
		{"Underperformers", rankings.Underperformers},
		{"Most volatile", rankings.MostVolatile},
	}
	for _, board := range boards {
		for i, s := range board.stats {
			row := []interface{}{board.name, i + 1, s.Key, cellValue(float64(s.Mean)), cellValue(float64(s.Std)), s.Count}
			if err := writeRow(fx, RankingsSheet, rowNum, row); err != nil {
				return err
			}
			rowNum++
		}
	}
	return fx.SetColWidth(RankingsSheet, "A", "A", 18)
}

// writeChartsSheet adds a native line chart of Close over Date, read from the
// Data sheet, and a column chart of the histogram bins written next to it.
func writeChartsSheet(fx *excelize.File, t *table.Table, dist *domain.Distribution, styles workbookStyles) error {
	dateCol, haveDate := columnLetter(t, dataprocessing.ColumnDate)
	closeCol, haveClose := columnLetter(t, dataprocessing.ColumnClose)
	lineChart := haveDate && haveClose && t.Len() > 0 && t.IsNumeric(dataprocessing.ColumnClose)
	histChart := dist != nil && len(dist.Bins) > 0
	if !lineChart && !histChart {
		return nil
	}

	if _, err := fx.NewSheet(ChartsSheet); err != nil {
		return err
	}

	if lineChart {
		last := t.Len() + 1
		err := fx.AddChart(ChartsSheet, "A1", &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("%s!$%s$1", DataSheet, closeCol),
				Categories: fmt.Sprintf("%s!$%s$2:$%s$%d", DataSheet, dateCol, dateCol, last),
				Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", DataSheet, closeCol, closeCol, last),
			}},
			Title:     []excelize.RichTextRun{{Text: "Closing Price Over Time"}},
			Legend:    excelize.ChartLegend{Position: "bottom"},
			Dimension: excelize.ChartDimension{Width: 720, Height: 360},
		})
		if err != nil {
			return fmt.Errorf("failed to add price chart: %w", err)
		}
	}

	if histChart {
		// bin table lives in columns M:N below the charts' anchor row
		if err := fx.SetSheetRow(ChartsSheet, "M1", &[]interface{}{"Bin", "Count"}); err != nil {
			return err
		}
		if err := fx.SetCellStyle(ChartsSheet, "M1", "N1", styles.header); err != nil {
			return err
		}
		for i, b := range dist.Bins {
			label := fmt.Sprintf("%.2f to %.2f", b.Low, b.High)
			if err := writeRowAt(fx, ChartsSheet, "M", i+2, []interface{}{label, b.Count}); err != nil {
				return err
			}
		}
		last := len(dist.Bins) + 1
		err := fx.AddChart(ChartsSheet, "A21", &excelize.Chart{
			Type: excelize.Col,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("%s!$N$1", ChartsSheet),
				Categories: fmt.Sprintf("%s!$M$2:$M$%d", ChartsSheet, last),
				Values:     fmt.Sprintf("%s!$N$2:$N$%d", ChartsSheet, last),
			}},
			Title:     []excelize.RichTextRun{{Text: dist.Column + " Distribution"}},
			Legend:    excelize.ChartLegend{Position: "none"},
			Dimension: excelize.ChartDimension{Width: 720, Height: 360},
		})
		if err != nil {
			return fmt.Errorf("failed to add distribution chart: %w", err)
		}
	}
	return nil
}

func writeRowAt(fx *excelize.File, sheet, col string, rowNum int, values []interface{}) error {
	return fx.SetSheetRow(sheet, fmt.Sprintf("%s%d", col, rowNum), &values)
}

func columnLetter(t *table.Table, name string) (string, bool) {
	for i, n := range t.ColumnNames() {
		if n == name {
			col, err := excelize.ColumnNumberToName(i + 1)
			return col, err == nil
		}
	}
	return "", false
}
