package metrics

import (
	"time"

	"github.com/ritzau/taxflow/pkg/projections"
)

// Refresh outcomes.
const (
	StatusOK      = "ok"
	StatusWaiting = "waiting"
	StatusError   = "error"
)

// RecordRefresh records one refresh run.
func (r *Registry) RecordRefresh(reason, status string, duration time.Duration) {
	r.RefreshesTotal.WithLabelValues(reason, status).Inc()
	if status == StatusOK {
		r.RefreshDuration.Observe(duration.Seconds())
		r.LastRefreshSuccess.SetToCurrentTime()
	}
}

// SnapshotSize summarizes a freshly built snapshot.
type SnapshotSize struct {
	Rows, Skipped        int
	Nodes, Edges, Ghosts int
	ClassifiedReads      int64
}

// UpdateSnapshot replaces the snapshot gauges.
func (r *Registry) UpdateSnapshot(s SnapshotSize) {
	r.ReportRows.Set(float64(s.Rows))
	r.ReportRowsSkipped.Set(float64(s.Skipped))
	r.HierarchyNodes.Set(float64(s.Nodes))
	r.HierarchyEdges.Set(float64(s.Edges))
	r.HierarchyGhosts.Set(float64(s.Ghosts))
	r.ClassifiedReads.Set(float64(s.ClassifiedReads))
}

// UpdateInterest replaces the per-species gauges. Species dropped from the
// configuration disappear from the exposition.
func (r *Registry) UpdateInterest(rows []projections.InterestRow) {
	r.InterestReads.Reset()
	for _, row := range rows {
		r.InterestReads.WithLabelValues(row.TaxID, row.Name, string(row.Level)).Set(float64(row.Reads))
	}
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
