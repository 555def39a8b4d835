// Package metrics provides Prometheus metrics for Heimdall.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for Heimdall.
type Metrics struct {
	// Toggle metrics
	TogglesTotal  *prometheus.CounterVec
	GlobalToggles prometheus.Counter

	// Scoped override metrics
	OverridesTotal *prometheus.CounterVec

	// State metrics
	ProxiesEnabled prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.TogglesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heimdall_toggles_total",
			Help: "Total number of per-protocol toggle operations",
		},
		[]string{"protocol", "state"},
	)

	m.GlobalToggles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "heimdall_global_toggles_total",
			Help: "Total number of global-mode toggle operations",
		},
	)

	m.OverridesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heimdall_overrides_total",
			Help: "Total number of scoped proxy overrides",
		},
		[]string{"kind"},
	)

	m.ProxiesEnabled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "heimdall_proxies_enabled",
			Help: "Number of protocols currently routed through a proxy",
		},
	)

	m.registry.MustRegister(
		m.TogglesTotal,
		m.GlobalToggles,
		m.OverridesTotal,
		m.ProxiesEnabled,
	)

	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
