package projections

import (
	"math"
	"sort"

	"github.com/ritzau/taxflow/pkg/taxonomy"
)

// Level is the alert tier of a species of interest.
type Level string

const (
	LevelClear   Level = "clear"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Species is a configured species of interest.
type Species struct {
	Name  string `json:"name" koanf:"name" yaml:"name"`
	TaxID string `json:"taxid" koanf:"taxid" yaml:"taxid"`
}

// Thresholds are the lower read limits of the warning and danger tiers.
type Thresholds struct {
	Warning int64 `json:"warning"`
	Danger  int64 `json:"danger"`
}

// Classify returns the tier for a read count.
func (t Thresholds) Classify(reads int64) Level {
	switch {
	case reads < t.Warning:
		return LevelClear
	case reads < t.Danger:
		return LevelWarning
	default:
		return LevelDanger
	}
}

// InterestRow is the current state of one species of interest.
type InterestRow struct {
	Name      string  `json:"name"`
	TaxID     string  `json:"taxid"`
	Reads     int64   `json:"reads"`
	Percent   float64 `json:"percent"`
	Log10     float64 `json:"log10_reads"`
	Level     Level   `json:"level"`
	Found     bool    `json:"found"`
	Validated *int    `json:"validated,omitempty"`
}

// Log10Reads is log10(reads), with 0 reads mapped to 0.
func Log10Reads(reads int64) float64 {
	if reads <= 0 {
		return 0
	}
	return math.Log10(float64(reads))
}

// SpeciesTable looks up every species of interest in the full, unfiltered
// rows. A species that is not in the report gets a zero-read row under its
// configured name. Rows are ordered by reads, most first; ties keep the
// configured order.
func SpeciesTable(rows []taxonomy.Row, species []Species, t Thresholds) []InterestRow {
	report := taxonomy.Report{Rows: rows}

	out := make([]InterestRow, 0, len(species))
	for _, sp := range species {
		ir := InterestRow{Name: sp.Name, TaxID: sp.TaxID}
		if row, ok := report.FindTaxID(sp.TaxID); ok {
			ir.Name = row.Name
			ir.Reads = row.Reads
			ir.Percent = row.Percent
			ir.Found = true
		}
		ir.Log10 = Log10Reads(ir.Reads)
		ir.Level = t.Classify(ir.Reads)
		out = append(out, ir)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Reads > out[j].Reads
	})
	return out
}

// GaugeReading feeds a gauge: the highest log10 read count against the tier
// boundaries in the same scale.
type GaugeReading struct {
	Value   float64 `json:"value"`
	Warning float64 `json:"warning"`
	Danger  float64 `json:"danger"`
	Level   Level   `json:"level"`
}

// Gauge summarises a species table.
func Gauge(table []InterestRow, t Thresholds) GaugeReading {
	g := GaugeReading{
		Warning: Log10Reads(t.Warning),
		Danger:  Log10Reads(t.Danger),
		Level:   LevelClear,
	}

	var top int64
	for _, r := range table {
		if r.Log10 > g.Value {
			g.Value = r.Log10
		}
		if r.Reads > top {
			top = r.Reads
		}
	}
	if len(table) > 0 {
		g.Level = t.Classify(top)
	}
	return g
}
