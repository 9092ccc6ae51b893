package report

import (
	"strconv"
	"strings"
	"time"

	"adpulse/pkg/contracts/domain"
)

// RawBatch is an untyped tabular batch as read from an uploaded file or from
// the string-typed spreadsheet store.
type RawBatch struct {
	Headers []string
	Rows    [][]string
}

// numericColumns are the columns coerced to float64 during normalization.
// Anything unparsable becomes a missing value, never an error.
var numericColumns = map[string]bool{
	domain.MetricCost:         true,
	domain.MetricGrossRevenue: true,
	domain.MetricOrders:       true,
	domain.MetricImpressions:  true,
	domain.MetricClicks:       true,
	domain.MetricCTR:          true,
	domain.MetricCPC:          true,
	domain.MetricCPM:          true,
	domain.MetricNetCost:      true,
	domain.MetricROI:          true,
	domain.MetricCostPerOrder: true,
}

// columnAliases maps normalized source headers to canonical column names.
// The upstream TikTok export labels its order count "Orders (SKU)".
var columnAliases = map[string]string{
	"orders_(sku)": domain.MetricOrders,
	"orders_sku":   domain.MetricOrders,
}

// dateLayouts are tried in order when parsing report_date values.
var dateLayouts = []string{
	domain.DateFormat,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"1/2/2006",
	"01/02/2006",
}

// NormalizeColumn canonicalizes a raw column header: lower-cased, trimmed,
// spaces replaced with underscores, then mapped through known aliases.
func NormalizeColumn(name string) string {
	col := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	if canonical, ok := columnAliases[col]; ok {
		return canonical
	}
	return col
}

// NormalizeBatch converts a raw tabular batch into records with typed,
// explicitly-optional fields. It is a pure transform: malformed numeric or
// date cells become missing fields and the row survives; only the caller
// decides whether a record without a usable report_date is rejected.
func NormalizeBatch(batch RawBatch) []domain.Record {
	columns := make([]string, len(batch.Headers))
	for i, h := range batch.Headers {
		columns[i] = NormalizeColumn(h)
	}

	records := make([]domain.Record, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		var rec domain.Record
		for i, col := range columns {
			if i >= len(row) {
				break
			}
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			switch {
			case col == "report_date":
				if t, ok := ParseDate(cell); ok {
					rec.ReportDate = &t
				}
			case col == "campaign_id":
				id := NormalizeCampaignID(cell)
				if id != "" {
					rec.CampaignID = &id
				}
			case col == "campaign_name":
				name := cell
				rec.CampaignName = &name
			case col == "account_name":
				name := cell
				rec.AccountName = &name
			case col == "upload_date":
				rec.UploadDate = cell
			case numericColumns[col]:
				if v, ok := parseNumeric(cell); ok {
					rec.SetMetric(col, v)
				}
			}
		}
		records = append(records, rec)
	}
	return records
}

// ParseDate parses a report date cell, trying the known layouts in order.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// NormalizeCampaignID strips the storage-boundary text marker and whitespace
// so IDs compare as plain strings inside the core. The leading apostrophe is
// only ever re-added when rows are written back to the spreadsheet, where it
// keeps numeric-looking IDs textual.
func NormalizeCampaignID(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "'"))
}

// parseNumeric coerces a cell to float64, tolerating currency formatting.
func parseNumeric(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSuffix(cleaned, "%")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
