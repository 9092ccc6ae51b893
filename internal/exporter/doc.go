// Package exporter renders aggregated campaign summaries to downloadable
// artifacts.
//
// ExcelExporter builds the summary workbook: an "All Data" sheet laying out
// one block per (account, campaign) pair with highlighted headers and blank
// separator rows, plus one sheet per campaign with a frozen header. Currency
// columns carry a $#,##0.00 number format.
//
// CSVWriter writes the flat summary CSV with a UTF-8 BOM so Excel opens it
// correctly.
package exporter
