package hierarchy

import (
	"sort"

	"github.com/ritzau/taxflow/pkg/taxonomy"
)

// PruneResult is the outcome of per-rank top-N pruning.
type PruneResult struct {
	// Edges are the retained edges ordered by target id.
	Edges []Edge
	// Selected are the edges chosen by value, before ancestor closure.
	Selected []Edge
	// Closure counts edges pulled in only to reconnect selected nodes.
	Closure int
	// Orphans counts retained edges dropped because no root-rank node reaches them.
	Orphans int
}

// Prune keeps the top edges by value at every kept rank and then adds every
// ancestor edge needed to connect the kept nodes to a root-rank node.
//
// Ranks are processed leaf to root. Within a rank, ties keep their input
// order. A top below 1 selects nothing.
func Prune(edges []Edge, idx *Index, top int) PruneResult {
	order := idx.Order()

	parentEdge := make(map[int]Edge, len(edges))
	byRank := make(map[taxonomy.Rank][]Edge)
	for _, e := range edges {
		parentEdge[e.Target] = e
		byRank[e.Rank] = append(byRank[e.Rank], e)
	}

	var result PruneResult
	retained := make(map[int]Edge)
	selected := make(map[int]bool)

	for _, rank := range order.Reversed() {
		bucket := append([]Edge(nil), byRank[rank]...)
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Value > bucket[j].Value
		})
		if top < len(bucket) {
			bucket = bucket[:max(top, 0)]
		}

		for _, e := range bucket {
			result.Selected = append(result.Selected, e)
			selected[e.Target] = true
			retained[e.Target] = e
		}

		// Ancestor closure: walk up from every selected edge until a
		// root-rank node or an already retained edge is reached.
		for _, e := range bucket {
			for src := e.Source; !idx.IsRoot(src); {
				if _, ok := retained[src]; ok {
					break
				}
				pe, ok := parentEdge[src]
				if !ok {
					break
				}
				retained[src] = pe
				src = pe.Source
			}
		}
	}

	out := make([]Edge, 0, len(retained))
	for _, e := range retained {
		out = append(out, e)
		if !selected[e.Target] {
			result.Closure++
		}
	}
	sortByTarget(out)
	sortByTarget(result.Selected)

	result.Edges, result.Orphans = dropUnreachable(out, idx.RootIDs())
	return result
}
