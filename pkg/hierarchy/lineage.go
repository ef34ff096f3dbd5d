package hierarchy

import (
	"sort"

	"github.com/ritzau/taxflow/pkg/taxonomy"
)

// ResolveParents returns, for every row, the position of its parent row: the
// nearest preceding row of a kept rank with a strictly higher depth score.
// Rows of other ranks and rows without such an ancestor get -1.
//
// Rows of ranks outside order are stepped over, so a species directly under
// a phylum links to the phylum when the genus rank is not kept.
func ResolveParents(rows []taxonomy.Row, order *taxonomy.RankOrder) []int {
	parents := make([]int, len(rows))

	// Ancestor stack of row positions with strictly decreasing depth.
	var stack []int
	for i, row := range rows {
		parents[i] = -1

		depth, ok := order.Depth(row.Rank)
		if !ok {
			continue
		}

		for len(stack) > 0 {
			top, _ := order.Depth(rows[stack[len(stack)-1]].Rank)
			if top > depth {
				break
			}
			stack = stack[:len(stack)-1]
		}

		if len(stack) > 0 {
			parents[i] = stack[len(stack)-1]
		}
		stack = append(stack, i)
	}

	return parents
}

// ResolveEdges links every kept row below the root rank to its parent.
// Edges are returned ordered by target id. Rows without an ancestor in the
// kept ranks produce no edge.
func ResolveEdges(rows []taxonomy.Row, idx *Index, weight Weight) []Edge {
	order := idx.Order()
	parents := ResolveParents(rows, order)

	var edges []Edge
	for i, row := range rows {
		child := idx.RowID(i)
		if child < 0 || row.Rank == order.Root() || parents[i] < 0 {
			continue
		}
		edges = append(edges, Edge{
			Source: idx.RowID(parents[i]),
			Target: child,
			Value:  weight.Value(row),
			Rank:   row.Rank,
		})
	}

	sortByTarget(edges)
	return edges
}

// Lineage returns the names from the root-most ancestor down to the row at pos.
func Lineage(rows []taxonomy.Row, parents []int, pos int) []string {
	var path []string
	for p := pos; p >= 0; p = parents[p] {
		path = append(path, rows[p].Name)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func sortByTarget(edges []Edge) {
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Target < edges[j].Target
	})
}
