package taxonomy

import (
	"errors"
	"fmt"
	"regexp"
)

// Rank is a taxonomic rank symbol as written in a Kraken report (e.g. "D", "P", "S", "S1").
type Rank string

// GhostRank marks placeholder nodes and edges inserted to pad incomplete lineages.
const GhostRank Rank = "placeholder"

// ErrUnknownRank is returned when a requested rank is not part of the configured alphabet.
var ErrUnknownRank = errors.New("unknown rank")

var rankPattern = regexp.MustCompile(`^[A-Z][0-9]*$`)

// ValidRankSymbol reports whether s is a well-formed rank symbol.
func ValidRankSymbol(s string) bool {
	return rankPattern.MatchString(s)
}

// RankOrder is an ordered set of ranks, root-most first.
//
// Depth scores count from the leaf: the last rank has depth 0 and the first
// rank has depth len-1. The same table is used for parent search, top-N
// bucketing and ghost padding.
type RankOrder struct {
	ranks []Rank
	depth map[Rank]int
}

// NewRankOrder builds a RankOrder from ranks given root-most first.
func NewRankOrder(ranks []Rank) (*RankOrder, error) {
	if len(ranks) == 0 {
		return nil, errors.New("rank order is empty")
	}

	o := &RankOrder{
		ranks: make([]Rank, len(ranks)),
		depth: make(map[Rank]int, len(ranks)),
	}
	copy(o.ranks, ranks)

	for i, r := range ranks {
		if !ValidRankSymbol(string(r)) {
			return nil, fmt.Errorf("invalid rank symbol %q", r)
		}
		if _, dup := o.depth[r]; dup {
			return nil, fmt.Errorf("duplicate rank symbol %q", r)
		}
		o.depth[r] = len(ranks) - 1 - i
	}

	return o, nil
}

// MustRankOrder is NewRankOrder for static orders; it panics on error.
func MustRankOrder(ranks ...Rank) *RankOrder {
	o, err := NewRankOrder(ranks)
	if err != nil {
		panic(err)
	}
	return o
}

// ParseRanks converts plain strings to ranks.
func ParseRanks(symbols []string) []Rank {
	ranks := make([]Rank, len(symbols))
	for i, s := range symbols {
		ranks[i] = Rank(s)
	}
	return ranks
}

// Ranks returns the ranks root-most first.
func (o *RankOrder) Ranks() []Rank {
	out := make([]Rank, len(o.ranks))
	copy(out, o.ranks)
	return out
}

// Reversed returns the ranks leaf-most first.
func (o *RankOrder) Reversed() []Rank {
	out := make([]Rank, len(o.ranks))
	for i, r := range o.ranks {
		out[len(o.ranks)-1-i] = r
	}
	return out
}

// Len returns the number of ranks.
func (o *RankOrder) Len() int {
	return len(o.ranks)
}

// Depth returns the depth score of r, 0 for the leaf-most rank.
func (o *RankOrder) Depth(r Rank) (int, bool) {
	d, ok := o.depth[r]
	return d, ok
}

// Contains reports whether r is part of the order.
func (o *RankOrder) Contains(r Rank) bool {
	_, ok := o.depth[r]
	return ok
}

// Root returns the root-most rank.
func (o *RankOrder) Root() Rank {
	return o.ranks[0]
}

// Leaf returns the leaf-most rank.
func (o *RankOrder) Leaf() Rank {
	return o.ranks[len(o.ranks)-1]
}

// Subset returns a new order holding the selected ranks in canonical order.
// Selection order and duplicates are ignored; unknown ranks are an error.
func (o *RankOrder) Subset(selected []Rank) (*RankOrder, error) {
	want := make(map[Rank]bool, len(selected))
	for _, r := range selected {
		if !o.Contains(r) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRank, r)
		}
		want[r] = true
	}

	var kept []Rank
	for _, r := range o.ranks {
		if want[r] {
			kept = append(kept, r)
		}
	}
	return NewRankOrder(kept)
}
