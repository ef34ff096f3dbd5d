package hierarchy

import "github.com/ritzau/taxflow/pkg/taxonomy"

// Index is the node table of one snapshot.
//
// Ids are dense and grouped by rank tier: all root-rank rows first, then the
// next kept rank, and so on, each tier in traversal order. A parent always
// belongs to a higher tier than its children, so parent ids are lower.
type Index struct {
	nodes  []Node
	rowID  []int // row position -> node id, -1 for rows of other ranks
	byName map[string]int
	order  *taxonomy.RankOrder
}

// IndexNodes assigns an id to every row whose rank is in order.
func IndexNodes(rows []taxonomy.Row, order *taxonomy.RankOrder) *Index {
	idx := &Index{
		rowID:  make([]int, len(rows)),
		byName: make(map[string]int),
		order:  order,
	}
	for i := range idx.rowID {
		idx.rowID[i] = -1
	}

	for _, rank := range order.Ranks() {
		for i, row := range rows {
			if row.Rank != rank {
				continue
			}
			id := len(idx.nodes)
			idx.nodes = append(idx.nodes, Node{
				ID:         id,
				Name:       row.Name,
				Rank:       row.Rank,
				Reads:      row.Reads,
				CladeReads: row.CladeReads,
				TaxID:      row.TaxID,
			})
			idx.rowID[i] = id
			// Same-name taxa keep separate ids; only the name lookup collapses them.
			idx.byName[row.Name] = id
		}
	}

	return idx
}

// Len returns the number of real nodes.
func (x *Index) Len() int {
	return len(x.nodes)
}

// Nodes returns the node table ordered by id.
func (x *Index) Nodes() []Node {
	out := make([]Node, len(x.nodes))
	copy(out, x.nodes)
	return out
}

// Node returns the node with the given id.
func (x *Index) Node(id int) (Node, bool) {
	if id < 0 || id >= len(x.nodes) {
		return Node{}, false
	}
	return x.nodes[id], true
}

// RowID returns the node id of the row at position pos, or -1.
func (x *Index) RowID(pos int) int {
	if pos < 0 || pos >= len(x.rowID) {
		return -1
	}
	return x.rowID[pos]
}

// Lookup returns the id registered for name. When several rows share a name
// the last one indexed wins.
func (x *Index) Lookup(name string) (int, bool) {
	id, ok := x.byName[name]
	return id, ok
}

// Order returns the kept ranks the index was built with.
func (x *Index) Order() *taxonomy.RankOrder {
	return x.order
}

// IsRoot reports whether id is a node of the root-most kept rank.
func (x *Index) IsRoot(id int) bool {
	n, ok := x.Node(id)
	return ok && n.Rank == x.order.Root()
}

// RootIDs returns the ids of all root-rank nodes in ascending order.
func (x *Index) RootIDs() []int {
	var ids []int
	for _, n := range x.nodes {
		if n.Rank != x.order.Root() {
			// Root tier comes first, so the first other rank ends it.
			break
		}
		ids = append(ids, n.ID)
	}
	return ids
}

// Depth returns the depth score of node id, 0 for the leaf-most kept rank.
func (x *Index) Depth(id int) (int, bool) {
	n, ok := x.Node(id)
	if !ok {
		return 0, false
	}
	return x.order.Depth(n.Rank)
}
