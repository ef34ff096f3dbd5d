package hierarchy

import (
	"strings"

	"github.com/ritzau/taxflow/pkg/taxonomy"
)

// SunburstRoot is the id and label of the synthetic centre entry.
const SunburstRoot = "root"

// SunburstOptions selects what a radial chart shows.
type SunburstOptions struct {
	Domains  []string
	Ranks    *taxonomy.RankOrder
	MinReads int64 // rows with clade reads at or below this are dropped
}

// SunburstEntry is one sector. ID is the lineage joined with "/", so entries
// with the same name in different lineages stay apart.
type SunburstEntry struct {
	ID         string        `json:"id"`
	Label      string        `json:"label"`
	Parent     string        `json:"parent"`
	Rank       taxonomy.Rank `json:"rank"`
	TaxID      string        `json:"taxid,omitempty"`
	Reads      int64         `json:"reads"`
	CladeReads int64         `json:"clade_reads"`
	Path       []string      `json:"path"`
}

// Sunburst is the radial chart view model.
type Sunburst struct {
	Entries     []SunburstEntry `json:"entries"`
	Placeholder bool            `json:"placeholder"`
}

// BuildSunburst lists every kept-rank row above the read cutoff with its parent
// and lineage path. Root-rank rows hang off a synthetic root entry.
func BuildSunburst(report *taxonomy.Report, opts SunburstOptions) *Sunburst {
	if report.Empty() || opts.Ranks == nil {
		return &Sunburst{Placeholder: true}
	}

	var rows []taxonomy.Row
	for _, row := range taxonomy.FilterDomains(report.Rows, taxonomy.KnownDomains, opts.Domains) {
		if row.CladeReads > opts.MinReads && opts.Ranks.Contains(row.Rank) {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return &Sunburst{Placeholder: true}
	}

	parents := ResolveParents(rows, opts.Ranks)
	ids := make([]string, len(rows))

	sb := &Sunburst{Entries: make([]SunburstEntry, 0, len(rows)+1)}
	for i, row := range rows {
		path := Lineage(rows, parents, i)
		ids[i] = strings.Join(path, "/")

		parent := SunburstRoot
		if p := parents[i]; p >= 0 {
			parent = ids[p]
		}

		sb.Entries = append(sb.Entries, SunburstEntry{
			ID:         ids[i],
			Label:      row.Name,
			Parent:     parent,
			Rank:       row.Rank,
			TaxID:      row.TaxID,
			Reads:      row.Reads,
			CladeReads: row.CladeReads,
			Path:       path,
		})
	}

	sb.Entries = append(sb.Entries, SunburstEntry{
		ID:    SunburstRoot,
		Label: SunburstRoot,
		Path:  []string{},
	})
	return sb
}
