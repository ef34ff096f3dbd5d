package hierarchy

import "github.com/ritzau/taxflow/pkg/taxonomy"

// ghostValue is the constant weight of tail ghost edges.
const ghostValue = 1

// GhostResult is the padded edge set.
type GhostResult struct {
	// Edges holds real and ghost edges.
	Edges []Edge
	// Ghosts are the synthesized nodes in id order, starting after the last real id.
	Ghosts []Node
}

// PadGhosts fills every missing kept level of the retained lineages with
// placeholder nodes, so each lineage spans all kept ranks.
//
// An edge that skips kept ranks gets one ghost per skipped level spliced in
// between; the spliced edges carry the child's value. A node left without a
// retained child above the leaf rank gets a tail chain of value-1 ghosts down
// to the leaf level. Ghost ids are allocated in edge order from idx.Len().
func PadGhosts(retained []Edge, idx *Index) GhostResult {
	var result GhostResult
	nextID := idx.Len()

	newGhost := func() int {
		id := nextID
		nextID++
		result.Ghosts = append(result.Ghosts, Node{ID: id, Rank: taxonomy.GhostRank})
		return id
	}

	hasChild := make(map[int]bool, len(retained))
	for _, e := range retained {
		hasChild[e.Source] = true
	}

	for _, e := range retained {
		srcDepth, _ := idx.Depth(e.Source)
		tgtDepth, _ := idx.Depth(e.Target)

		prev := e.Source
		for gap := srcDepth - tgtDepth - 1; gap > 0; gap-- {
			g := newGhost()
			result.Edges = append(result.Edges, Edge{Source: prev, Target: g, Value: e.Value, Rank: taxonomy.GhostRank})
			prev = g
		}
		result.Edges = append(result.Edges, Edge{Source: prev, Target: e.Target, Value: e.Value, Rank: e.Rank})

		if hasChild[e.Target] {
			continue
		}
		prev = e.Target
		for level := tgtDepth; level > 0; level-- {
			g := newGhost()
			result.Edges = append(result.Edges, Edge{Source: prev, Target: g, Value: ghostValue, Rank: taxonomy.GhostRank})
			prev = g
		}
	}

	return result
}
