package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects resolution counters on a private registry so two
// services in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	nodeResolutions *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	builds          *prometheus.CounterVec
	buildDuration   prometheus.Histogram
	inventoryNodes  prometheus.Gauge
}

// NewMetrics creates and registers the resolution metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nodeResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratum_node_resolutions_total",
				Help: "Total number of single-node resolutions",
			},
			[]string{"outcome"},
		),
		resolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "stratum_node_resolve_duration_seconds",
				Help: "Duration of single-node resolutions",
			},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratum_inventory_builds_total",
				Help: "Total number of full inventory builds",
			},
			[]string{"outcome"},
		),
		buildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "stratum_inventory_build_duration_seconds",
				Help: "Duration of full inventory builds",
			},
		),
		inventoryNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stratum_inventory_nodes",
				Help: "Number of nodes in the last successful inventory build",
			},
		),
	}
	m.registry.MustRegister(
		m.nodeResolutions,
		m.resolveDuration,
		m.builds,
		m.buildDuration,
		m.inventoryNodes,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveNodeResolve records one single-node resolution.
func (m *Metrics) ObserveNodeResolve(d time.Duration, err error) {
	m.nodeResolutions.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.resolveDuration.Observe(d.Seconds())
	}
}

// ObserveBuild records one full inventory build.
func (m *Metrics) ObserveBuild(d time.Duration, nodes int, err error) {
	m.builds.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.buildDuration.Observe(d.Seconds())
		m.inventoryNodes.Set(float64(nodes))
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
