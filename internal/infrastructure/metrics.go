package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters exposed on /metrics. A private
// registry keeps the endpoint limited to what the service itself reports.
type Metrics struct {
	registry *prometheus.Registry

	UploadsTotal       *prometheus.CounterVec
	RecordsMerged      prometheus.Counter
	ConflictsTotal     *prometheus.CounterVec
	AggregationsTotal  *prometheus.CounterVec
	ExportsTotal       prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the service counters.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adpulse_uploads_total",
			Help: "Report uploads processed, by merge policy and resolution mode.",
		}, []string{"policy", "mode"}),
		RecordsMerged: factory.NewCounter(prometheus.CounterOpts{
			Name: "adpulse_records_merged_total",
			Help: "Records written to the historical set by reconciliation.",
		}),
		ConflictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adpulse_conflicts_total",
			Help: "Duplicate records detected during reconciliation, by mode.",
		}, []string{"mode"}),
		AggregationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adpulse_aggregations_total",
			Help: "Aggregation runs, by time bucket.",
		}, []string{"bucket"}),
		ExportsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "adpulse_exports_total",
			Help: "Summary workbooks generated.",
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adpulse_notifications_total",
			Help: "Webhook deliveries, by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
