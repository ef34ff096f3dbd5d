package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/ritzau/taxflow/pkg/projections"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.RefreshesTotal == nil || r.HierarchyEdges == nil || r.HTTPRequestsTotal == nil {
		t.Fatal("metrics not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}

	// Independent registries must not collide on registration.
	_ = NewRegistry()
}

func TestRecordRefresh(t *testing.T) {
	r := NewRegistry()
	r.RecordRefresh("watcher", StatusOK, 120*time.Millisecond)
	r.RecordRefresh("watcher", StatusOK, 80*time.Millisecond)
	r.RecordRefresh("ticker", StatusWaiting, 0)

	counter, err := r.RefreshesTotal.GetMetricWithLabelValues("watcher", StatusOK)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatal(err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("expected 2 refreshes, got %v", metric.Counter.GetValue())
	}

	var hist dto.Metric
	if err := r.RefreshDuration.Write(&hist); err != nil {
		t.Fatal(err)
	}
	if hist.Histogram.GetSampleCount() != 2 {
		t.Errorf("waiting runs should not be timed, got %d samples", hist.Histogram.GetSampleCount())
	}

	var last dto.Metric
	if err := r.LastRefreshSuccess.Write(&last); err != nil {
		t.Fatal(err)
	}
	if last.Gauge.GetValue() == 0 {
		t.Error("last success timestamp not set")
	}
}

func TestUpdateSnapshotAndInterest(t *testing.T) {
	r := NewRegistry()
	r.UpdateSnapshot(SnapshotSize{Rows: 120, Skipped: 2, Nodes: 9, Edges: 8, Ghosts: 3, ClassifiedReads: 900})

	var m dto.Metric
	if err := r.HierarchyGhosts.Write(&m); err != nil {
		t.Fatal(err)
	}
	if m.Gauge.GetValue() != 3 {
		t.Errorf("expected 3 ghosts, got %v", m.Gauge.GetValue())
	}

	r.UpdateInterest([]projections.InterestRow{
		{Name: "Escherichia coli", TaxID: "562", Reads: 1500, Level: projections.LevelDanger},
	})
	r.UpdateInterest([]projections.InterestRow{
		{Name: "Staphylococcus aureus", TaxID: "1280", Reads: 40, Level: projections.LevelClear},
	})

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() != "taxflow_interest_reads" {
			continue
		}
		if len(f.Metric) != 1 {
			t.Fatalf("expected stale species to be dropped, got %d series", len(f.Metric))
		}
		if f.Metric[0].Gauge.GetValue() != 40 {
			t.Errorf("unexpected value %v", f.Metric[0].Gauge.GetValue())
		}
		return
	}
	t.Error("taxflow_interest_reads not gathered")
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/api/sankey", "200", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`taxflow_http_requests_total{method="GET",route="/api/sankey",status="200"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in exposition", want)
		}
	}
}
