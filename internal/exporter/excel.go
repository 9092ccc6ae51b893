package exporter

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "adpulse/internal/errors"
	"adpulse/pkg/contracts/domain"
)

const allDataSheet = "All Data"

// metricOrder fixes the metric column order in exported files.
var metricOrder = []string{
	domain.MetricCost,
	domain.MetricGrossRevenue,
	domain.MetricOrders,
	domain.MetricImpressions,
	domain.MetricClicks,
	domain.MetricCTR,
	domain.MetricCPC,
	domain.MetricCPM,
	domain.MetricNetCost,
	domain.MetricROI,
	domain.MetricCostPerOrder,
}

// currencyColumns get the $#,##0.00 number format in the workbook.
var currencyColumns = map[string]bool{
	domain.MetricCost:         true,
	domain.MetricGrossRevenue: true,
	domain.MetricNetCost:      true,
	domain.MetricCostPerOrder: true,
}

// ExcelExporter builds the aggregated summary workbook.
type ExcelExporter struct {
	logger *slog.Logger
}

// NewExcelExporter creates an Excel exporter.
func NewExcelExporter(logger *slog.Logger) *ExcelExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelExporter{logger: logger}
}

// SummaryFilename names the export artifact after its granularity and the
// date range it covers.
func SummaryFilename(bucket domain.Bucket, start, end time.Time) string {
	return fmt.Sprintf("ad_summary_%s_%s_to_%s.xlsx",
		bucket,
		start.Format(domain.DateFormat),
		end.Format(domain.DateFormat))
}

// WriteSummary renders the summary rows as a workbook and returns the xlsx
// bytes. Rows are expected in (account, campaign, period) order, as the
// aggregation engine emits them.
func (e *ExcelExporter) WriteSummary(rows []domain.SummaryRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, apperrors.NewExportError("no summary rows to export", nil)
	}

	f := excelize.NewFile()
	defer f.Close()

	columns := summaryColumns(rows)

	if err := f.SetSheetName(f.GetSheetName(0), allDataSheet); err != nil {
		return nil, apperrors.NewExportError("failed to create workbook", err)
	}
	if err := e.writeAllDataSheet(f, rows, columns); err != nil {
		return nil, err
	}
	if err := e.writeCampaignSheets(f, rows, columns); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, apperrors.NewExportError("failed to serialize workbook", err)
	}

	e.logger.Info("built summary workbook",
		slog.Int("rows", len(rows)),
		slog.Int("columns", len(columns)))
	return buf.Bytes(), nil
}

// writeAllDataSheet lays out one block per (account, campaign) pair: a
// highlighted header row, the pair's period rows, then a blank separator.
func (e *ExcelExporter) writeAllDataSheet(f *excelize.File, rows []domain.SummaryRow, columns []string) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
	})
	if err != nil {
		return apperrors.NewExportError("failed to create header style", err)
	}
	currencyStyle, err := currencyStyle(f)
	if err != nil {
		return err
	}

	widths := newColumnWidths(columns)
	row := 1
	for _, block := range campaignBlocks(rows) {
		if err := writeRow(f, allDataSheet, row, headerCells(columns)); err != nil {
			return err
		}
		if err := styleRow(f, allDataSheet, row, len(columns), headerStyle); err != nil {
			return err
		}
		widths.fit(columns, headerCells(columns))
		row++

		for _, sr := range block.rows {
			cells := summaryCells(sr, columns)
			if err := writeRow(f, allDataSheet, row, cells); err != nil {
				return err
			}
			if err := styleCurrencyCells(f, allDataSheet, row, columns, currencyStyle); err != nil {
				return err
			}
			widths.fit(columns, cells)
			row++
		}
		row++ // blank separator between campaign blocks
	}

	return widths.apply(f, allDataSheet)
}

// writeCampaignSheets adds one sheet per campaign with a frozen, highlighted
// header row. Sheet names are capped at Excel's 31-character limit.
func (e *ExcelExporter) writeCampaignSheets(f *excelize.File, rows []domain.SummaryRow, columns []string) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return apperrors.NewExportError("failed to create header style", err)
	}
	currencyStyle, err := currencyStyle(f)
	if err != nil {
		return err
	}

	used := map[string]bool{allDataSheet: true}
	for _, group := range campaignGroups(rows) {
		sheet := sheetName(group.campaign, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return apperrors.NewExportError(fmt.Sprintf("failed to create sheet %q", sheet), err)
		}

		if err := writeRow(f, sheet, 1, headerCells(columns)); err != nil {
			return err
		}
		if err := styleRow(f, sheet, 1, len(columns), headerStyle); err != nil {
			return err
		}

		widths := newColumnWidths(columns)
		widths.fit(columns, headerCells(columns))
		for i, sr := range group.rows {
			cells := summaryCells(sr, columns)
			if err := writeRow(f, sheet, i+2, cells); err != nil {
				return err
			}
			if err := styleCurrencyCells(f, sheet, i+2, columns, currencyStyle); err != nil {
				return err
			}
			widths.fit(columns, cells)
		}
		if err := widths.apply(f, sheet); err != nil {
			return err
		}

		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return apperrors.NewExportError("failed to freeze header row", err)
		}
	}
	return nil
}

// summaryColumns returns the export column list: the grouping dimensions
// followed by every metric present in at least one row, in canonical order.
func summaryColumns(rows []domain.SummaryRow) []string {
	present := make(map[string]bool)
	for _, r := range rows {
		for name := range r.Metrics {
			present[name] = true
		}
	}

	columns := []string{"account_name", "campaign_name", "period"}
	for _, name := range metricOrder {
		if present[name] {
			columns = append(columns, name)
		}
	}
	return columns
}

type block struct {
	account  string
	campaign string
	rows     []domain.SummaryRow
}

// campaignBlocks groups consecutive rows sharing (account, campaign).
func campaignBlocks(rows []domain.SummaryRow) []block {
	var blocks []block
	for _, r := range rows {
		n := len(blocks)
		if n == 0 || blocks[n-1].account != r.AccountName || blocks[n-1].campaign != r.CampaignName {
			blocks = append(blocks, block{account: r.AccountName, campaign: r.CampaignName})
			n++
		}
		blocks[n-1].rows = append(blocks[n-1].rows, r)
	}
	return blocks
}

// campaignGroups groups rows by campaign name, first-seen order.
func campaignGroups(rows []domain.SummaryRow) []block {
	index := make(map[string]int)
	var groups []block
	for _, r := range rows {
		i, ok := index[r.CampaignName]
		if !ok {
			i = len(groups)
			index[r.CampaignName] = i
			groups = append(groups, block{campaign: r.CampaignName})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	return groups
}

func headerCells(columns []string) []interface{} {
	cells := make([]interface{}, len(columns))
	for i, c := range columns {
		cells[i] = c
	}
	return cells
}

func summaryCells(sr domain.SummaryRow, columns []string) []interface{} {
	cells := make([]interface{}, len(columns))
	for i, col := range columns {
		switch col {
		case "account_name":
			cells[i] = sr.AccountName
		case "campaign_name":
			cells[i] = sr.CampaignName
		case "period":
			cells[i] = sr.Period
		default:
			cells[i] = sr.Metric(col)
		}
	}
	return cells
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return apperrors.NewExportError("invalid cell coordinates", err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return apperrors.NewExportError("failed to write row", err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, width, style int) error {
	start, _ := excelize.CoordinatesToCellName(1, row)
	end, _ := excelize.CoordinatesToCellName(width, row)
	if err := f.SetCellStyle(sheet, start, end, style); err != nil {
		return apperrors.NewExportError("failed to style row", err)
	}
	return nil
}

func styleCurrencyCells(f *excelize.File, sheet string, row int, columns []string, style int) error {
	for i, col := range columns {
		if !currencyColumns[col] {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return apperrors.NewExportError("failed to apply currency format", err)
		}
	}
	return nil
}

func currencyStyle(f *excelize.File) (int, error) {
	format := "$#,##0.00"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return 0, apperrors.NewExportError("failed to create currency style", err)
	}
	return style, nil
}

// columnWidths tracks the widest cell seen per column.
type columnWidths struct {
	widths []float64
}

func newColumnWidths(columns []string) *columnWidths {
	return &columnWidths{widths: make([]float64, len(columns))}
}

func (c *columnWidths) fit(columns []string, cells []interface{}) {
	for i := range columns {
		if columns[i] == "period" {
			c.widths[i] = 20
			continue
		}
		w := float64(len(fmt.Sprint(cells[i]))) + 2
		if w > c.widths[i] {
			c.widths[i] = w
		}
	}
}

func (c *columnWidths) apply(f *excelize.File, sheet string) error {
	for i, w := range c.widths {
		if w == 0 {
			continue
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, w); err != nil {
			return apperrors.NewExportError("failed to set column width", err)
		}
	}
	return nil
}

// sheetName truncates a campaign name to Excel's limit, strips characters
// Excel forbids in sheet names, and disambiguates collisions.
func sheetName(campaign string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return ' '
		}
		return r
	}, campaign)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Campaign"
	}
	runes := []rune(name)
	if len(runes) > 31 {
		name = string(runes[:31])
		runes = runes[:31]
	}

	candidate := name
	for i := 2; used[candidate]; i++ {
		suffix := fmt.Sprintf(" %d", i)
		if len(runes)+len(suffix) > 31 {
			candidate = string(runes[:31-len(suffix)]) + suffix
		} else {
			candidate = name + suffix
		}
	}
	used[candidate] = true
	return candidate
}
