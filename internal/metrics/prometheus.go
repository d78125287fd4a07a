package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRegistry mirrors the same counters onto a dedicated
// prometheus.Registry so operators can scrape /metrics with the standard
// tooling instead of polling the bespoke /api/metrics JSON endpoint.
type PrometheusRegistry struct {
	Registry *prometheus.Registry

	transactionsTotal prometheus.Counter
	anomaliesTotal    prometheus.Counter
	alertsTotal       prometheus.Counter
	processingSeconds prometheus.Histogram
	systemLoad        prometheus.Gauge
}

// NewPrometheusRegistry builds and registers the gauge/counter set.
func NewPrometheusRegistry() *PrometheusRegistry {
	reg := prometheus.NewRegistry()

	p := &PrometheusRegistry{
		Registry: reg,
		transactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anomaly_engine_transactions_total",
			Help: "Total transactions scored.",
		}),
		anomaliesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anomaly_engine_anomalies_total",
			Help: "Total transactions flagged as anomalous.",
		}),
		alertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anomaly_engine_alerts_total",
			Help: "Total records published to the alerts sink.",
		}),
		processingSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "anomaly_engine_processing_seconds",
			Help:    "Per-record scoring+observe latency.",
			Buckets: prometheus.DefBuckets,
		}),
		systemLoad: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "anomaly_engine_system_load",
			Help: "Coarse system load gauge in [0,1].",
		}),
	}

	reg.MustRegister(p.transactionsTotal, p.anomaliesTotal, p.alertsTotal, p.processingSeconds, p.systemLoad)
	return p
}

// Observe records one processed record's outcome and latency.
func (p *PrometheusRegistry) Observe(isAnomaly, isAlert bool, seconds float64) {
	p.transactionsTotal.Inc()
	p.processingSeconds.Observe(seconds)
	if isAnomaly {
		p.anomaliesTotal.Inc()
	}
	if isAlert {
		p.alertsTotal.Inc()
	}
}

// SetSystemLoad updates the load gauge.
func (p *PrometheusRegistry) SetSystemLoad(load float64) {
	p.systemLoad.Set(load)
}
