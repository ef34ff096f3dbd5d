// Package projections derives tables from a report snapshot: the most
// abundant taxa, the species of interest and their validation counts.
// Every function is stateless and works on the rows it is given.
package projections

import (
	"sort"

	"github.com/ritzau/taxflow/pkg/taxonomy"
)

// TopEntry is one line of the abundance list. Index is 1-based.
type TopEntry struct {
	Index int           `json:"index"`
	Name  string        `json:"name"`
	TaxID string        `json:"taxid"`
	Rank  taxonomy.Rank `json:"rank"`
	Reads int64         `json:"reads"`
}

// TopListOptions selects the rows of a top list.
type TopListOptions struct {
	Domains []string
	Ranks   []taxonomy.Rank
	Size    int
}

// TopList returns the Size rows with the most reads among the selected
// domains and ranks, most reads first. Rows with equal reads keep report order.
func TopList(rows []taxonomy.Row, opts TopListOptions) []TopEntry {
	wantRank := make(map[taxonomy.Rank]bool, len(opts.Ranks))
	for _, r := range opts.Ranks {
		wantRank[r] = true
	}

	var kept []taxonomy.Row
	for _, row := range taxonomy.FilterDomains(rows, taxonomy.KnownDomains, opts.Domains) {
		if wantRank[row.Rank] {
			kept = append(kept, row)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Reads > kept[j].Reads
	})
	if opts.Size >= 0 && len(kept) > opts.Size {
		kept = kept[:opts.Size]
	}

	entries := make([]TopEntry, len(kept))
	for i, row := range kept {
		entries[i] = TopEntry{
			Index: i + 1,
			Name:  row.Name,
			TaxID: row.TaxID,
			Rank:  row.Rank,
			Reads: row.Reads,
		}
	}
	return entries
}
