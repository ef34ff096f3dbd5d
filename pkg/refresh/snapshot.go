package refresh

import (
	"time"

	"github.com/ritzau/taxflow/pkg/hierarchy"
	"github.com/ritzau/taxflow/pkg/projections"
	"github.com/ritzau/taxflow/pkg/qc"
	"github.com/ritzau/taxflow/pkg/taxonomy"
)

// Snapshot is everything derived from one read of the run directory. A
// published snapshot is never modified; readers may hold on to it for as
// long as they like.
type Snapshot struct {
	Report         *taxonomy.Report // nil while waiting for the first report
	Classification taxonomy.Classification
	Sankey         *hierarchy.Sankey         // default selection, for the status summary
	Interest       []projections.InterestRow // validated species table
	Gauge          projections.GaugeReading
	Timeline       []qc.TimelineRow
	Fastp          *qc.Fastp
	Filter         qc.FilterSummary
	UpdatedAt      time.Time
	Version        int
}

// Waiting reports whether no report has been read yet.
func (s *Snapshot) Waiting() bool {
	return s == nil || s.Report.Empty()
}

func (s *Snapshot) clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	c := *s
	return &c
}
