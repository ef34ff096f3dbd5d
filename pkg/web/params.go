package web

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ritzau/taxflow/pkg/hierarchy"
	"github.com/ritzau/taxflow/pkg/projections"
	"github.com/ritzau/taxflow/pkg/taxonomy"
)

// errBadRequest marks query parameter errors, answered with 400.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Defaults are the values used for query parameters a request leaves out.
type Defaults struct {
	AllRanks    *taxonomy.RankOrder
	Ranks       *taxonomy.RankOrder
	Domains     []string
	Top         int
	Weight      hierarchy.Weight
	GhostLabel  string
	MinReads    int64
	TopListSize int
}

// list reads a parameter given either repeated or comma separated.
func list(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func (d Defaults) domains(q url.Values) ([]string, error) {
	if _, ok := q["domains"]; !ok {
		return d.Domains, nil
	}
	domains := list(q, "domains")
	for _, name := range domains {
		if !taxonomy.IsKnownDomain(name) {
			return nil, badRequest("unknown domain %q", name)
		}
	}
	return domains, nil
}

func (d Defaults) ranks(q url.Values) (*taxonomy.RankOrder, error) {
	symbols := list(q, "ranks")
	if len(symbols) == 0 {
		return d.Ranks, nil
	}
	order, err := d.AllRanks.Subset(taxonomy.ParseRanks(symbols))
	if err != nil {
		return nil, badRequest("ranks: %v", err)
	}
	return order, nil
}

func positiveInt(q url.Values, key string, def int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, badRequest("%s must be a positive integer, got %q", key, s)
	}
	return n, nil
}

func nonNegativeInt64(q url.Values, key string, def int64) (int64, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer, got %q", key, s)
	}
	return n, nil
}

func flag(q url.Values, key string) bool {
	b, _ := strconv.ParseBool(q.Get(key))
	return b
}

// SankeyOptions reads domains, ranks, top and weight.
func (d Defaults) SankeyOptions(q url.Values) (hierarchy.SankeyOptions, error) {
	opts := hierarchy.SankeyOptions{Weight: d.Weight, GhostLabel: d.GhostLabel}
	var err error
	if opts.Domains, err = d.domains(q); err != nil {
		return opts, err
	}
	if opts.Ranks, err = d.ranks(q); err != nil {
		return opts, err
	}
	if opts.Top, err = positiveInt(q, "top", d.Top); err != nil {
		return opts, err
	}
	if w := q.Get("weight"); w != "" {
		if opts.Weight, err = hierarchy.ParseWeight(w); err != nil {
			return opts, badRequest("%v", err)
		}
	}
	return opts, nil
}

// SunburstOptions reads domains, ranks and min_reads.
func (d Defaults) SunburstOptions(q url.Values) (hierarchy.SunburstOptions, error) {
	opts := hierarchy.SunburstOptions{}
	var err error
	if opts.Domains, err = d.domains(q); err != nil {
		return opts, err
	}
	if opts.Ranks, err = d.ranks(q); err != nil {
		return opts, err
	}
	if opts.MinReads, err = nonNegativeInt64(q, "min_reads", d.MinReads); err != nil {
		return opts, err
	}
	return opts, nil
}

// TopListOptions reads domains, ranks and size. Without ranks the list
// holds the leaf rank only.
func (d Defaults) TopListOptions(q url.Values) (projections.TopListOptions, error) {
	opts := projections.TopListOptions{Ranks: []taxonomy.Rank{d.AllRanks.Leaf()}}
	var err error
	if opts.Domains, err = d.domains(q); err != nil {
		return opts, err
	}
	if len(list(q, "ranks")) > 0 {
		order, err := d.ranks(q)
		if err != nil {
			return opts, err
		}
		opts.Ranks = order.Ranks()
	}
	if opts.Size, err = positiveInt(q, "size", d.TopListSize); err != nil {
		return opts, err
	}
	return opts, nil
}
