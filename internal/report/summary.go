package report

import (
	"sort"

	"adpulse/pkg/contracts/domain"
)

// RankMetric returns the metric used to rank campaigns: orders when the data
// carries it, gross revenue otherwise. ok is false when neither exists.
func RankMetric(records []domain.Record) (string, bool) {
	for _, name := range []string{domain.MetricOrders, domain.MetricGrossRevenue} {
		for _, rec := range records {
			if _, present := rec.Metric(name); present {
				return name, true
			}
		}
	}
	return "", false
}

// TopCampaigns groups records by campaign name, sums the ranking metric plus
// revenue and cost, recomputes roi, and splits the campaigns into the top n
// and the remainder. The sort is stable: campaigns with equal rank values
// keep their first-seen order.
func TopCampaigns(records []domain.Record, n int) (top, rest []domain.CampaignSummary) {
	top, rest = []domain.CampaignSummary{}, []domain.CampaignSummary{}
	rankMetric, ok := RankMetric(records)
	if !ok {
		return top, rest
	}

	index := make(map[string]int)
	var summaries []domain.CampaignSummary
	for _, rec := range records {
		name := rec.Campaign()
		i, seen := index[name]
		if !seen {
			i = len(summaries)
			index[name] = i
			summaries = append(summaries, domain.CampaignSummary{
				CampaignName: name,
				RankMetric:   rankMetric,
			})
		}
		summaries[i].RankValue += rec.MetricOrZero(rankMetric)
		summaries[i].Cost += rec.MetricOrZero(domain.MetricCost)
		summaries[i].GrossRevenue += rec.MetricOrZero(domain.MetricGrossRevenue)
	}
	for i := range summaries {
		summaries[i].ROI = SafeRatio(summaries[i].GrossRevenue, summaries[i].Cost)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].RankValue > summaries[j].RankValue
	})

	if n > len(summaries) {
		n = len(summaries)
	}
	if n < 0 {
		n = 0
	}
	return summaries[:n], summaries[n:]
}

// KPIs computes the dashboard rollup. avg_roi is total revenue over total
// cost, not a mean of per-row ratios; avg_cost_per_order is the arithmetic
// mean of the per-row column, 0 when the column is absent everywhere.
func KPIs(records []domain.Record) domain.KPIReport {
	var kpi domain.KPIReport
	var cpoSum float64
	var cpoCount int

	for _, rec := range records {
		kpi.TotalCost += rec.MetricOrZero(domain.MetricCost)
		kpi.TotalRevenue += rec.MetricOrZero(domain.MetricGrossRevenue)
		kpi.TotalOrders += rec.MetricOrZero(domain.MetricOrders)
		if v, ok := rec.Metric(domain.MetricCostPerOrder); ok {
			cpoSum += v
			cpoCount++
		}
	}

	kpi.AvgROI = SafeRatio(kpi.TotalRevenue, kpi.TotalCost)
	if cpoCount > 0 {
		kpi.AvgCostPerOrder = SafeRatio(cpoSum, float64(cpoCount))
	}
	return kpi
}
