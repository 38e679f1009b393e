package monitor

import (
	"net/http"

	"ga4gh/loader/models/ingest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the store gauges refreshed at every checkpoint.
type Metrics struct {
	Registry *prometheus.Registry

	variants    prometheus.Gauge
	calls       prometheus.Gauge
	variantSets prometheus.Gauge
	callSets    prometheus.Gauge
	nextVariant prometheus.Gauge
	checkpoints *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		variants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loader_variants",
			Help: "Distinct variants in the aggregation store",
		}),
		calls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loader_calls",
			Help: "Calls aggregated over every variant",
		}),
		variantSets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loader_variant_sets",
			Help: "Distinct variant sets",
		}),
		callSets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loader_call_sets",
			Help: "Distinct call sets",
		}),
		nextVariant: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loader_next_variant_id",
			Help: "Identity the next new variant will receive",
		}),
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loader_checkpoints_total",
			Help: "Store checkpoints run by the monitor",
		}, []string{"status"}),
	}

	m.Registry.MustRegister(m.variants, m.calls, m.variantSets, m.callSets, m.nextVariant, m.checkpoints)
	return m
}

func (m *Metrics) observe(stats ingest.StoreStats) {
	m.variants.Set(float64(stats.Variants))
	m.calls.Set(float64(stats.Calls))
	m.variantSets.Set(float64(stats.VariantSets))
	m.callSets.Set(float64(stats.CallSets))
	m.nextVariant.Set(float64(stats.NextVariant))
}

func (m *Metrics) checkpointed(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.checkpoints.WithLabelValues(status).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
