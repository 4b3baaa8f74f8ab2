// Package exporter writes analysis results to files.
//
// CSVWriter exports the derived table, the monthly aggregation and the
// symbol rankings as CSV with a UTF-8 BOM so spreadsheet tools detect the
// encoding. Workbook builds a single XLSX file holding the data, the
// correlation matrix with a color scale, the aggregations and native
// spreadsheet charts.
//
// Example usage:
//
//	w := exporter.NewCSVWriter("out")
//	if err := w.WriteTable("prices_derived.csv", tbl); err != nil {
//	    return err
//	}
//
//	err := exporter.SaveWorkbook("out/analysis.xlsx", exporter.WorkbookInput{
//	    Table:       tbl,
//	    Correlation: corr,
//	    Monthly:     months,
//	})
package exporter
