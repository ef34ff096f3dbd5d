package hierarchy

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/ritzau/taxflow/pkg/taxonomy"
)

var alphabet = []taxonomy.Rank{"D", "P", "C", "O", "F", "G", "S"}

// reportRows decodes generated integers into a pre-order report. Any rank
// sequence that starts at the domain level is a valid traversal: every row's
// parent is the nearest preceding row of a higher rank.
func reportRows(codes []int) []taxonomy.Row {
	rows := []taxonomy.Row{{Rank: "D", Name: "domain", Reads: 1, CladeReads: 1}}
	for i, c := range codes {
		reads := int64(c / len(alphabet))
		rows = append(rows, taxonomy.Row{
			Rank:       alphabet[c%len(alphabet)],
			Name:       fmt.Sprintf("taxon-%d", i),
			Reads:      reads,
			CladeReads: reads,
		})
	}
	return rows
}

// keptRanks decodes a non-zero bitmask into a subset of the alphabet.
func keptRanks(mask int) *taxonomy.RankOrder {
	var ranks []taxonomy.Rank
	for i, r := range alphabet {
		if mask&(1<<i) != 0 {
			ranks = append(ranks, r)
		}
	}
	return taxonomy.MustRankOrder(ranks...)
}

// pathLengths returns the node count of every root-to-sink path.
func pathLengths(edges []Edge, roots []int) []int {
	children := make(map[int][]int)
	for _, e := range edges {
		children[e.Source] = append(children[e.Source], e.Target)
	}

	var lengths []int
	var walk func(id, n int)
	walk = func(id, n int) {
		if len(children[id]) == 0 {
			lengths = append(lengths, n)
			return
		}
		for _, c := range children[id] {
			walk(c, n+1)
		}
	}
	for _, r := range roots {
		if len(children[r]) > 0 {
			walk(r, 1)
		}
	}
	return lengths
}

func TestHierarchyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	codes := gen.SliceOf(gen.IntRange(0, len(alphabet)*500))
	masks := gen.IntRange(1, 1<<len(alphabet)-1)
	tops := gen.IntRange(1, 4)

	properties.Property("parent ids are lower than child ids", prop.ForAll(
		func(codes []int, mask int) bool {
			rows := reportRows(codes)
			idx := IndexNodes(rows, keptRanks(mask))
			for _, e := range ResolveEdges(rows, idx, WeightReads) {
				if e.Source >= e.Target {
					return false
				}
			}
			return true
		},
		codes, masks,
	))

	properties.Property("retained nodes connect to a root-rank node", prop.ForAll(
		func(codes []int, mask, top int) bool {
			rows := reportRows(codes)
			idx := IndexNodes(rows, keptRanks(mask))
			pruned := Prune(ResolveEdges(rows, idx, WeightReads), idx, top)

			parent := make(map[int]int)
			for _, e := range pruned.Edges {
				parent[e.Target] = e.Source
			}
			for _, e := range pruned.Edges {
				id := e.Target
				for steps := 0; !idx.IsRoot(id); steps++ {
					p, ok := parent[id]
					if !ok || steps > len(rows) {
						return false
					}
					id = p
				}
			}
			return true
		},
		codes, masks, tops,
	))

	properties.Property("reconstruction is idempotent", prop.ForAll(
		func(codes []int, mask, top int) bool {
			rows := reportRows(codes)
			order := keptRanks(mask)
			a := Reconstruct(rows, order, top, WeightReads)
			b := Reconstruct(rows, order, top, WeightReads)
			return reflect.DeepEqual(a.Index.Nodes(), b.Index.Nodes()) &&
				reflect.DeepEqual(a.Edges, b.Edges) &&
				len(a.Ghosts) == len(b.Ghosts)
		},
		codes, masks, tops,
	))

	properties.Property("at most top edges are selected per rank", prop.ForAll(
		func(codes []int, mask, top int) bool {
			rows := reportRows(codes)
			idx := IndexNodes(rows, keptRanks(mask))
			pruned := Prune(ResolveEdges(rows, idx, WeightReads), idx, top)

			perRank := make(map[taxonomy.Rank]int)
			for _, e := range pruned.Selected {
				perRank[e.Rank]++
				if perRank[e.Rank] > top {
					return false
				}
			}
			return true
		},
		codes, masks, tops,
	))

	properties.Property("padded lineages span every kept rank", prop.ForAll(
		func(codes []int, mask, top int) bool {
			order := keptRanks(mask)
			h := Reconstruct(reportRows(codes), order, top, WeightReads)
			for _, n := range pathLengths(h.Edges, h.Index.RootIDs()) {
				if n != order.Len() {
					return false
				}
			}
			return true
		},
		codes, masks, tops,
	))

	properties.Property("ghost ids follow real ids", prop.ForAll(
		func(codes []int, mask, top int) bool {
			h := Reconstruct(reportRows(codes), keptRanks(mask), top, WeightReads)
			for i, g := range h.Ghosts {
				if g.ID != h.Index.Len()+i {
					return false
				}
			}
			return true
		},
		codes, masks, tops,
	))

	properties.TestingRun(t)
}

func TestReachable(t *testing.T) {
	edges := []Edge{{Source: 0, Target: 2}, {Source: 2, Target: 3}, {Source: 1, Target: 4}}
	g := DirectedGraph([]int{0, 1}, edges)

	got := Reachable(g, []int{0})
	want := map[int]bool{0: true, 2: true, 3: true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Reachable() = %v, want %v", got, want)
	}
}
