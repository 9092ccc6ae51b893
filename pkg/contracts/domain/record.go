package domain

import (
	"strings"
	"time"
)

// Canonical metric column names. Additive metrics are summed during
// aggregation; ratio metrics are always recomputed from the sums.
const (
	MetricCost         = "cost"
	MetricGrossRevenue = "gross_revenue"
	MetricOrders       = "orders"
	MetricImpressions  = "impressions"
	MetricClicks       = "clicks"
	MetricCTR          = "ctr"
	MetricCPC          = "cpc"
	MetricCPM          = "cpm"
	MetricNetCost      = "net_cost"
	MetricROI          = "roi"
	MetricCostPerOrder = "cost_per_order"
)

// RatioMetrics are derived metrics that must never be summed directly.
var RatioMetrics = map[string]bool{
	MetricROI:          true,
	MetricCostPerOrder: true,
}

// DateFormat is the canonical date layout used everywhere a date is
// serialized: storage rows, period strings, export filenames.
const DateFormat = "2006-01-02"

// DefaultAccount is the classifier fallback label.
const DefaultAccount = "Other Accounts"

// Record represents one campaign-day performance row.
// Optional fields use pointers so "column absent" stays distinguishable
// from a zero value after the string-typed storage round trip.
type Record struct {
	ReportDate   *time.Time         `json:"report_date,omitempty"`
	CampaignID   *string            `json:"campaign_id,omitempty"`
	CampaignName *string            `json:"campaign_name,omitempty"`
	AccountName  *string            `json:"account_name,omitempty"`
	UploadDate   string             `json:"upload_date,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// Key returns the composite identity key (campaign_id, report_date) used
// for duplicate detection. ok is false when either component is missing,
// which forces the caller onto the date-only fallback.
func (r Record) Key() (string, bool) {
	if r.CampaignID == nil || r.ReportDate == nil {
		return "", false
	}
	id := strings.TrimSpace(*r.CampaignID)
	if id == "" {
		return "", false
	}
	return id + "|" + r.ReportDate.Format(DateFormat), true
}

// DateKey returns the report date serialized for the coarse date-only
// fallback key. ok is false when the date is missing.
func (r Record) DateKey() (string, bool) {
	if r.ReportDate == nil {
		return "", false
	}
	return r.ReportDate.Format(DateFormat), true
}

// Metric returns a metric value and whether the column was present.
func (r Record) Metric(name string) (float64, bool) {
	if r.Metrics == nil {
		return 0, false
	}
	v, ok := r.Metrics[name]
	return v, ok
}

// MetricOrZero returns a metric value, treating a missing column as 0.
func (r Record) MetricOrZero(name string) float64 {
	v, _ := r.Metric(name)
	return v
}

// SetMetric records a metric value, allocating the map on first use.
func (r *Record) SetMetric(name string, value float64) {
	if r.Metrics == nil {
		r.Metrics = make(map[string]float64)
	}
	r.Metrics[name] = value
}

// Campaign returns the campaign name or "" when absent.
func (r Record) Campaign() string {
	if r.CampaignName == nil {
		return ""
	}
	return *r.CampaignName
}

// Account returns the account label or "" when absent.
func (r Record) Account() string {
	if r.AccountName == nil {
		return ""
	}
	return *r.AccountName
}

// StringPtr is a small helper for building records from literals.
func StringPtr(s string) *string { return &s }

// TimePtr is a small helper for building records from literals.
func TimePtr(t time.Time) *time.Time { return &t }
