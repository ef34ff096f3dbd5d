// Package hierarchy rebuilds the taxonomy tree implied by a report and turns it
// into chart-ready nodes and edges.
//
// The pipeline is: IndexNodes assigns ids, ResolveEdges links every kept row to
// its nearest higher-ranked ancestor, Prune keeps the top N edges per rank while
// preserving connectivity, and PadGhosts fills missing levels with placeholder
// nodes. Everything is recomputed from an immutable snapshot on every call.
package hierarchy

import (
	"fmt"

	"github.com/ritzau/taxflow/pkg/taxonomy"
)

// Node is a vertex of the reconstructed hierarchy. Ghost nodes have rank
// taxonomy.GhostRank and no taxid.
type Node struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	Rank       taxonomy.Rank `json:"rank"`
	Reads      int64         `json:"reads"`
	CladeReads int64         `json:"clade_reads"`
	TaxID      string        `json:"taxid,omitempty"`
}

// IsGhost reports whether n is a synthesized placeholder.
func (n Node) IsGhost() bool {
	return n.Rank == taxonomy.GhostRank
}

// Edge is a directed parent to child link. Rank is the rank of the child.
type Edge struct {
	Source int           `json:"source"`
	Target int           `json:"target"`
	Value  int64         `json:"value"`
	Rank   taxonomy.Rank `json:"rank"`
}

// Weight selects which read count becomes the edge value.
type Weight string

const (
	// WeightReads uses reads assigned directly to the child taxon.
	WeightReads Weight = "reads"
	// WeightClade uses reads of the child's whole subtree.
	WeightClade Weight = "clade"
)

// ParseWeight validates a weight name. The empty string means WeightReads.
func ParseWeight(s string) (Weight, error) {
	switch Weight(s) {
	case "", WeightReads:
		return WeightReads, nil
	case WeightClade:
		return WeightClade, nil
	default:
		return "", fmt.Errorf("unknown edge weight %q (want %q or %q)", s, WeightReads, WeightClade)
	}
}

// Value returns the weight of row.
func (w Weight) Value(row taxonomy.Row) int64 {
	if w == WeightClade {
		return row.CladeReads
	}
	return row.Reads
}
