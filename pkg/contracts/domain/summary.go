package domain

import "fmt"

// Bucket is the time granularity used by the aggregation engine.
type Bucket string

const (
	BucketDaily   Bucket = "daily"
	BucketWeekly  Bucket = "weekly"
	BucketMonthly Bucket = "monthly"
)

// ParseBucket validates a bucket string from a request or CLI flag.
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case BucketDaily, BucketWeekly, BucketMonthly:
		return Bucket(s), nil
	case "":
		return BucketWeekly, nil
	}
	return "", fmt.Errorf("unknown bucket %q", s)
}

// SummaryRow is one aggregated group: (account, campaign, period) plus the
// summed metrics and the recomputed ratios.
type SummaryRow struct {
	AccountName  string             `json:"account_name,omitempty"`
	CampaignName string             `json:"campaign_name,omitempty"`
	Period       string             `json:"period"`
	Metrics      map[string]float64 `json:"metrics"`
}

// Metric returns a summed or recomputed metric for the row, 0 when absent.
func (s SummaryRow) Metric(name string) float64 {
	return s.Metrics[name]
}

// CampaignSummary is one campaign's rollup used by the top-N projection and
// the notification payload.
type CampaignSummary struct {
	CampaignName string  `json:"campaign_name"`
	RankMetric   string  `json:"rank_metric"`
	RankValue    float64 `json:"rank_value"`
	Cost         float64 `json:"cost"`
	GrossRevenue float64 `json:"gross_revenue"`
	ROI          float64 `json:"roi"`
}

// KPIReport is the flat key/value rollup shown on the dashboard and sent in
// the notification payload.
type KPIReport struct {
	TotalCost       float64 `json:"total_cost"`
	TotalRevenue    float64 `json:"total_revenue"`
	TotalOrders     float64 `json:"total_orders"`
	AvgROI          float64 `json:"avg_roi"`
	AvgCostPerOrder float64 `json:"avg_cost_per_order"`
}
