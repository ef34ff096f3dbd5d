package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taxflow"

// Registry holds all metrics for the application
type Registry struct {
	// Refresh Metrics
	RefreshesTotal     *prometheus.CounterVec
	RefreshDuration    prometheus.Histogram
	LastRefreshSuccess prometheus.Gauge

	// Snapshot Metrics
	ReportRows        prometheus.Gauge
	ReportRowsSkipped prometheus.Gauge
	HierarchyNodes    prometheus.Gauge
	HierarchyEdges    prometheus.Gauge
	HierarchyGhosts   prometheus.Gauge
	ClassifiedReads   prometheus.Gauge
	InterestReads     *prometheus.GaugeVec

	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SSESubscribers       prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized.
// Each registry is independent so tests can build as many as they like.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		registry: reg,
	}

	r.initRefreshMetrics()
	r.initHTTPMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
