package exporter

import "strconv"

// formatMetric renders a metric value for CSV output with two decimal
// places, matching the rounding applied to ratio metrics upstream.
func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
