package hierarchy

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// DirectedGraph builds a gonum graph over the given nodes and edges.
// Node ids are the hierarchy ids.
func DirectedGraph(nodes []int, edges []Edge) *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for _, id := range nodes {
		if g.Node(int64(id)) == nil {
			g.AddNode(simple.Node(id))
		}
	}
	for _, e := range edges {
		if e.Source == e.Target {
			continue
		}
		if !g.HasEdgeFromTo(int64(e.Source), int64(e.Target)) {
			g.SetEdge(g.NewEdge(simple.Node(e.Source), simple.Node(e.Target)))
		}
	}
	return g
}

// Reachable returns the ids reachable from any of roots, roots included.
func Reachable(g *simple.DirectedGraph, roots []int) map[int]bool {
	seen := make(map[int]bool)

	bfs := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			seen[int(n.ID())] = true
		},
	}
	for _, r := range roots {
		node := g.Node(int64(r))
		if node == nil || seen[r] {
			continue
		}
		bfs.Walk(g, node, nil)
	}

	return seen
}

// dropUnreachable removes edges whose target cannot be reached from roots.
func dropUnreachable(edges []Edge, roots []int) (kept []Edge, dropped int) {
	g := DirectedGraph(roots, edges)
	seen := Reachable(g, roots)

	kept = make([]Edge, 0, len(edges))
	for _, e := range edges {
		if seen[e.Target] {
			kept = append(kept, e)
		} else {
			dropped++
		}
	}
	return kept, dropped
}
