package hierarchy

import (
	"reflect"
	"testing"

	"github.com/ritzau/taxflow/pkg/taxonomy"
)

func row(rank taxonomy.Rank, name string, reads int64) taxonomy.Row {
	return taxonomy.Row{Rank: rank, Name: name, Reads: reads, CladeReads: reads, TaxID: name}
}

func lineageRows() []taxonomy.Row {
	return []taxonomy.Row{
		row("D", "Bacteria", 100),
		row("P", "Proteobacteria", 60),
		row("S", "E. coli", 60),
	}
}

func TestReconstructDirectLineage(t *testing.T) {
	h := Reconstruct(lineageRows(), taxonomy.MustRankOrder("D", "P", "S"), 5, WeightReads)

	want := []Edge{
		{Source: 0, Target: 1, Value: 60, Rank: "P"},
		{Source: 1, Target: 2, Value: 60, Rank: "S"},
	}
	if !reflect.DeepEqual(h.Edges, want) {
		t.Errorf("edges = %+v\nwant %+v", h.Edges, want)
	}
	if len(h.Ghosts) != 0 {
		t.Errorf("expected no ghosts, got %d", len(h.Ghosts))
	}
}

func TestReconstructSplicesGhostForMissingRank(t *testing.T) {
	h := Reconstruct(lineageRows(), taxonomy.MustRankOrder("D", "P", "G", "S"), 5, WeightReads)

	if len(h.Ghosts) != 1 {
		t.Fatalf("expected 1 ghost, got %d", len(h.Ghosts))
	}
	ghost := h.Ghosts[0]
	if ghost.ID != 3 || !ghost.IsGhost() {
		t.Errorf("unexpected ghost node %+v", ghost)
	}

	want := []Edge{
		{Source: 0, Target: 1, Value: 60, Rank: "P"},
		{Source: 1, Target: 3, Value: 60, Rank: taxonomy.GhostRank},
		{Source: 3, Target: 2, Value: 60, Rank: "S"},
	}
	if !reflect.DeepEqual(h.Edges, want) {
		t.Errorf("edges = %+v\nwant %+v", h.Edges, want)
	}
}

func TestReconstructAbsentDomainIsEmpty(t *testing.T) {
	rows := taxonomy.FilterDomains(lineageRows(), taxonomy.KnownDomains, []string{"Viruses"})
	h := Reconstruct(rows, taxonomy.MustRankOrder("D", "P", "S"), 5, WeightReads)

	if h.Index.Len() != 0 || len(h.Edges) != 0 || len(h.Ghosts) != 0 {
		t.Errorf("expected empty result, got %d nodes, %d edges, %d ghosts",
			h.Index.Len(), len(h.Edges), len(h.Ghosts))
	}
}

func TestIndexNodesGroupsByRankTier(t *testing.T) {
	rows := []taxonomy.Row{
		row("R", "root", 0),
		row("D", "Bacteria", 0),
		row("P", "Firmicutes", 0),
		row("S", "B. subtilis", 10),
		row("P", "Proteobacteria", 0),
		row("S", "E. coli", 20),
		row("D", "Viruses", 0),
	}
	idx := IndexNodes(rows, taxonomy.MustRankOrder("D", "P", "S"))

	var got []string
	for _, n := range idx.Nodes() {
		got = append(got, n.Name)
	}
	want := []string{"Bacteria", "Viruses", "Firmicutes", "Proteobacteria", "B. subtilis", "E. coli"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("node order = %v, want %v", got, want)
	}

	if idx.RowID(0) != -1 {
		t.Errorf("root row should not be indexed, got id %d", idx.RowID(0))
	}
	if !reflect.DeepEqual(idx.RootIDs(), []int{0, 1}) {
		t.Errorf("RootIDs() = %v", idx.RootIDs())
	}
}

func TestIndexLookupLastWriterWins(t *testing.T) {
	rows := []taxonomy.Row{
		row("D", "Bacteria", 0),
		row("G", "Bacillus", 0),
		row("S", "cereus", 5),
		row("G", "Other", 0),
		row("S", "cereus", 7),
	}
	idx := IndexNodes(rows, taxonomy.MustRankOrder("D", "G", "S"))

	if idx.Len() != 5 {
		t.Fatalf("every row should get its own id, got %d nodes", idx.Len())
	}
	id, ok := idx.Lookup("cereus")
	if !ok || id != 4 {
		t.Errorf("Lookup(cereus) = %d, %v; want 4", id, ok)
	}

	// Edges follow row positions, so both species keep their own parent.
	edges := ResolveEdges(rows, idx, WeightReads)
	parents := map[int]int{}
	for _, e := range edges {
		parents[e.Target] = e.Source
	}
	if parents[3] != 1 || parents[4] != 2 {
		t.Errorf("unexpected parents %v", parents)
	}
}

func TestResolveParentsStepsOverOtherRanks(t *testing.T) {
	rows := []taxonomy.Row{
		row("U", "unclassified", 0), // 0
		row("R", "root", 0),         // 1
		row("D", "Bacteria", 0),     // 2
		row("P", "Firmicutes", 0),   // 3
		row("C", "Bacilli", 0),      // 4
		row("G", "Bacillus", 0),     // 5
		row("S", "B. subtilis", 0),  // 6
		row("S1", "strain 168", 0),  // 7
		row("P", "Proteobacteria", 0),
		row("S", "E. coli", 0),
	}
	parents := ResolveParents(rows, taxonomy.MustRankOrder("D", "P", "S"))

	want := []int{-1, -1, -1, 2, -1, -1, 3, -1, 2, 8}
	if !reflect.DeepEqual(parents, want) {
		t.Errorf("ResolveParents() = %v, want %v", parents, want)
	}

	got := Lineage(rows, parents, 9)
	if !reflect.DeepEqual(got, []string{"Bacteria", "Proteobacteria", "E. coli"}) {
		t.Errorf("Lineage() = %v", got)
	}
}

func TestResolveEdgesWeight(t *testing.T) {
	rows := []taxonomy.Row{
		{Rank: "D", Name: "Bacteria", Reads: 1, CladeReads: 100},
		{Rank: "S", Name: "E. coli", Reads: 40, CladeReads: 99},
	}
	idx := IndexNodes(rows, taxonomy.MustRankOrder("D", "S"))

	if got := ResolveEdges(rows, idx, WeightReads)[0].Value; got != 40 {
		t.Errorf("reads weight = %d, want 40", got)
	}
	if got := ResolveEdges(rows, idx, WeightClade)[0].Value; got != 99 {
		t.Errorf("clade weight = %d, want 99", got)
	}
}

func TestParseWeight(t *testing.T) {
	for in, want := range map[string]Weight{"": WeightReads, "reads": WeightReads, "clade": WeightClade} {
		got, err := ParseWeight(in)
		if err != nil || got != want {
			t.Errorf("ParseWeight(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseWeight("percent"); err == nil {
		t.Error("expected error for unknown weight")
	}
}
