package report

import (
	"math"
	"sort"
	"time"

	"adpulse/pkg/contracts/domain"
)

// AggregateOptions configures an aggregation pass.
type AggregateOptions struct {
	// Bucket selects the period granularity. Defaults to weekly.
	Bucket domain.Bucket
	// GroupKeys restricts grouping to a subset of {account_name,
	// campaign_name}. Empty means both; keys absent from the data are
	// skipped rather than failing.
	GroupKeys []string
	// Metrics restricts which additive metrics are summed. Empty means
	// every additive metric present in the data.
	Metrics []string
}

// Aggregate groups records by period and the available grouping dimensions,
// sums the additive metrics, and recomputes roi and cost_per_order from the
// group sums. Rows are sorted by (account, campaign, period) for stable
// output. Records without a report_date never reach this engine; they are
// rejected at the ingestion boundary.
func Aggregate(records []domain.Record, opts AggregateOptions) []domain.SummaryRow {
	if len(records) == 0 {
		return []domain.SummaryRow{}
	}
	if opts.Bucket == "" {
		opts.Bucket = domain.BucketWeekly
	}

	groupByAccount, groupByCampaign := resolveGroupKeys(records, opts.GroupKeys)
	metrics := resolveMetrics(records, opts.Metrics)

	type groupKey struct {
		account  string
		campaign string
		period   string
	}
	sums := make(map[groupKey]map[string]float64)
	var order []groupKey

	for _, rec := range records {
		if rec.ReportDate == nil {
			continue
		}
		key := groupKey{period: PeriodStart(*rec.ReportDate, opts.Bucket).Format(domain.DateFormat)}
		if groupByAccount {
			key.account = rec.Account()
		}
		if groupByCampaign {
			key.campaign = rec.Campaign()
		}

		bucket, ok := sums[key]
		if !ok {
			bucket = make(map[string]float64, len(metrics))
			sums[key] = bucket
			order = append(order, key)
		}
		for _, m := range metrics {
			// Missing values count as 0 rather than excluding the row.
			bucket[m] += rec.MetricOrZero(m)
		}
	}

	rows := make([]domain.SummaryRow, 0, len(order))
	for _, key := range order {
		bucket := sums[key]
		bucket[domain.MetricROI] = SafeRatio(bucket[domain.MetricGrossRevenue], bucket[domain.MetricCost])
		bucket[domain.MetricCostPerOrder] = SafeRatio(bucket[domain.MetricCost], bucket[domain.MetricOrders])
		rows = append(rows, domain.SummaryRow{
			AccountName:  key.account,
			CampaignName: key.campaign,
			Period:       key.period,
			Metrics:      bucket,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AccountName != rows[j].AccountName {
			return rows[i].AccountName < rows[j].AccountName
		}
		if rows[i].CampaignName != rows[j].CampaignName {
			return rows[i].CampaignName < rows[j].CampaignName
		}
		return rows[i].Period < rows[j].Period
	})
	return rows
}

// PeriodStart maps a report date to the first day of its bucket: the date
// itself for daily, the Monday of its ISO week for weekly, the first of the
// calendar month for monthly.
func PeriodStart(date time.Time, bucket domain.Bucket) time.Time {
	switch bucket {
	case domain.BucketWeekly:
		offset := (int(date.Weekday()) + 6) % 7
		return date.AddDate(0, 0, -offset)
	case domain.BucketMonthly:
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	default:
		return date
	}
}

// SafeRatio divides num by den, returning 0 for a zero or missing
// denominator, rounded to 2 decimal places. This is the single division rule
// for every derived ratio metric in the pipeline.
func SafeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(num/den*100) / 100
}

// resolveGroupKeys narrows the requested grouping dimensions to those the
// data actually carries.
func resolveGroupKeys(records []domain.Record, requested []string) (account, campaign bool) {
	wantAccount, wantCampaign := true, true
	if len(requested) > 0 {
		wantAccount, wantCampaign = false, false
		for _, key := range requested {
			switch key {
			case "account_name":
				wantAccount = true
			case "campaign_name":
				wantCampaign = true
			}
		}
	}
	if wantAccount {
		for _, rec := range records {
			if rec.AccountName != nil {
				account = true
				break
			}
		}
	}
	if wantCampaign {
		for _, rec := range records {
			if rec.CampaignName != nil {
				campaign = true
				break
			}
		}
	}
	return account, campaign
}

// resolveMetrics narrows the requested additive metrics to those present in
// the data, excluding ratio metrics, which are never summed.
func resolveMetrics(records []domain.Record, requested []string) []string {
	present := make(map[string]bool)
	for _, rec := range records {
		for name := range rec.Metrics {
			if !domain.RatioMetrics[name] {
				present[name] = true
			}
		}
	}

	var candidates []string
	if len(requested) > 0 {
		candidates = requested
	} else {
		candidates = make([]string, 0, len(present))
		for name := range present {
			candidates = append(candidates, name)
		}
		sort.Strings(candidates)
	}

	out := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if present[name] {
			out = append(out, name)
		}
	}
	return out
}
