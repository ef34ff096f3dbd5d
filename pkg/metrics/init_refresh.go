package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRefreshMetrics() {
	r.RefreshesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Snapshot refresh runs by trigger and outcome",
		},
		[]string{"reason", "status"},
	)

	r.RefreshDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time to parse the report and rebuild all projections",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	r.LastRefreshSuccess = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh",
		},
	)

	r.ReportRows = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_rows",
			Help:      "Rows parsed from the current Kraken report",
		},
	)

	r.ReportRowsSkipped = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_rows_skipped",
			Help:      "Malformed rows skipped in the current Kraken report",
		},
	)

	r.HierarchyNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hierarchy_nodes",
			Help:      "Nodes in the default flow diagram, ghosts included",
		},
	)

	r.HierarchyEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hierarchy_edges",
			Help:      "Edges in the default flow diagram",
		},
	)

	r.HierarchyGhosts = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hierarchy_ghosts",
			Help:      "Placeholder nodes padded into the default flow diagram",
		},
	)

	r.ClassifiedReads = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "classified_reads",
			Help:      "Reads assigned to any taxon in the current report",
		},
	)

	r.InterestReads = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interest_reads",
			Help:      "Reads per species of interest",
		},
		[]string{"taxid", "name", "level"},
	)
}
