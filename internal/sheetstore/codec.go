package sheetstore

import (
	"strconv"
	"strings"

	"adpulse/internal/report"
	"adpulse/pkg/contracts/domain"
)

// storageColumns is the canonical column order of the worksheet. The store
// is string-typed: every value is written as text and re-normalized on read.
var storageColumns = []string{
	"report_date",
	"campaign_id",
	"campaign_name",
	"account_name",
	domain.MetricCost,
	domain.MetricGrossRevenue,
	domain.MetricOrders,
	domain.MetricImpressions,
	domain.MetricClicks,
	domain.MetricCTR,
	domain.MetricCPC,
	domain.MetricCPM,
	domain.MetricNetCost,
	"upload_date",
}

// headerRow returns the worksheet header as a sheet row.
func headerRow() []interface{} {
	row := make([]interface{}, len(storageColumns))
	for i, col := range storageColumns {
		row[i] = col
	}
	return row
}

// encodeRecords serializes records to string-typed sheet rows in canonical
// column order. Missing fields become empty cells so optionality survives
// the round trip. Campaign IDs get a leading apostrophe, the Sheets text
// marker that stops numeric-looking IDs from being coerced to numbers; it
// exists only at this boundary and is stripped again on read.
func encodeRecords(records []domain.Record) [][]interface{} {
	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		row := make([]interface{}, len(storageColumns))
		for i, col := range storageColumns {
			row[i] = encodeField(rec, col)
		}
		rows = append(rows, row)
	}
	return rows
}

func encodeField(rec domain.Record, col string) string {
	switch col {
	case "report_date":
		if rec.ReportDate == nil {
			return ""
		}
		return rec.ReportDate.Format(domain.DateFormat)
	case "campaign_id":
		if rec.CampaignID == nil || strings.TrimSpace(*rec.CampaignID) == "" {
			return ""
		}
		return "'" + strings.TrimSpace(*rec.CampaignID)
	case "campaign_name":
		return rec.Campaign()
	case "account_name":
		return rec.Account()
	case "upload_date":
		return rec.UploadDate
	default:
		v, ok := rec.Metric(col)
		if !ok {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// decodeRows converts raw sheet values back into records by running them
// through the same normalizer the upload path uses. The first row is the
// header; an empty sheet decodes to no records.
func decodeRows(values [][]interface{}) []domain.Record {
	if len(values) == 0 {
		return nil
	}

	headers := stringCells(values[0])
	rows := make([][]string, 0, len(values)-1)
	for _, row := range values[1:] {
		rows = append(rows, stringCells(row))
	}
	return report.NormalizeBatch(report.RawBatch{Headers: headers, Rows: rows})
}

func stringCells(row []interface{}) []string {
	cells := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			cells[i] = s
			continue
		}
		cells[i] = strings.TrimSpace(strconvAny(v))
	}
	return cells
}

// strconvAny renders the odd non-string cell the Sheets API may hand back.
func strconvAny(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
