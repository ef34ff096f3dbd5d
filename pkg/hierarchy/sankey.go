package hierarchy

import (
	"fmt"

	"github.com/ritzau/taxflow/pkg/taxonomy"
)

// PlaceholderLabel is shown when there is nothing to draw yet.
const PlaceholderLabel = "Waiting for data"

// DefaultGhostLabel labels ghost nodes unless configured otherwise.
const DefaultGhostLabel = "none"

// Hierarchy is the fully reconstructed, pruned and padded graph of one snapshot.
type Hierarchy struct {
	Index  *Index
	Pruned PruneResult
	Edges  []Edge // real and ghost edges
	Ghosts []Node
}

// Reconstruct runs index, lineage, pruning and padding over rows.
func Reconstruct(rows []taxonomy.Row, order *taxonomy.RankOrder, top int, weight Weight) *Hierarchy {
	idx := IndexNodes(rows, order)
	edges := ResolveEdges(rows, idx, weight)
	pruned := Prune(edges, idx, top)
	padded := PadGhosts(pruned.Edges, idx)

	return &Hierarchy{
		Index:  idx,
		Pruned: pruned,
		Edges:  padded.Edges,
		Ghosts: padded.Ghosts,
	}
}

// Nodes returns real and ghost nodes ordered by id.
func (h *Hierarchy) Nodes() []Node {
	return append(h.Index.Nodes(), h.Ghosts...)
}

// SankeyOptions selects what a flow diagram shows.
type SankeyOptions struct {
	Domains    []string
	Ranks      *taxonomy.RankOrder
	Top        int
	Weight     Weight
	GhostLabel string
}

// Validate checks the options before any work is done.
func (o SankeyOptions) Validate() error {
	if o.Ranks == nil {
		return fmt.Errorf("no ranks selected")
	}
	if o.Top < 1 {
		return fmt.Errorf("top must be at least 1, got %d", o.Top)
	}
	for _, d := range o.Domains {
		if !taxonomy.IsKnownDomain(d) {
			return fmt.Errorf("unknown domain %q", d)
		}
	}
	return nil
}

// Sankey is the flow diagram view model. Labels are indexed by node id and
// include ghost labels after the real ones.
type Sankey struct {
	Labels      []string        `json:"labels"`
	Ranks       []taxonomy.Rank `json:"ranks"`
	Edges       []Edge          `json:"edges"`
	Ghosts      int             `json:"ghosts"`
	Placeholder bool            `json:"placeholder"`
}

// Links returns the edges as the parallel source, target and value arrays
// plotting libraries expect.
func (s *Sankey) Links() (source, target []int, value []int64) {
	for _, e := range s.Edges {
		source = append(source, e.Source)
		target = append(target, e.Target)
		value = append(value, e.Value)
	}
	return source, target, value
}

// PlaceholderSankey is the diagram shown before any data arrives.
func PlaceholderSankey() *Sankey {
	return &Sankey{
		Labels:      []string{PlaceholderLabel},
		Edges:       []Edge{{Source: 0, Target: 1, Value: 1}},
		Placeholder: true,
	}
}

// BuildSankey runs the full pipeline over report. A nil or empty report, or
// a selection that leaves no edges, yields the placeholder diagram.
func BuildSankey(report *taxonomy.Report, opts SankeyOptions) *Sankey {
	if report.Empty() || opts.Ranks == nil {
		return PlaceholderSankey()
	}

	rows := taxonomy.FilterDomains(report.Rows, taxonomy.KnownDomains, opts.Domains)
	h := Reconstruct(rows, opts.Ranks, opts.Top, opts.Weight)
	if len(h.Edges) == 0 {
		return PlaceholderSankey()
	}

	ghostLabel := opts.GhostLabel
	if ghostLabel == "" {
		ghostLabel = DefaultGhostLabel
	}

	nodes := h.Nodes()
	s := &Sankey{
		Labels: make([]string, len(nodes)),
		Ranks:  make([]taxonomy.Rank, len(nodes)),
		Edges:  h.Edges,
		Ghosts: len(h.Ghosts),
	}
	for i, n := range nodes {
		s.Labels[i] = n.Name
		if n.IsGhost() {
			s.Labels[i] = ghostLabel
		}
		s.Ranks[i] = n.Rank
	}
	return s
}
