// Package taxonomy models Kraken-style taxonomic classification reports.
//
// A report is a pre-order traversal of an implicit taxonomy tree: every row
// is followed by its descendants, and there are no explicit parent pointers.
package taxonomy

import "errors"

// ErrNoData is returned when no report is available yet (missing or empty file).
var ErrNoData = errors.New("no report data yet")

// Row is a single line of a report.
type Row struct {
	Percent    float64 `json:"percent"`
	CladeReads int64   `json:"clade_reads"` // reads of the whole subtree
	Reads      int64   `json:"reads"`       // reads assigned directly to this taxon
	Rank       Rank    `json:"rank"`
	TaxID      string  `json:"taxid"`
	Name       string  `json:"name"`
}

// Report is one immutable snapshot of a report file.
type Report struct {
	Rows    []Row `json:"rows"`
	Skipped int   `json:"skipped"` // malformed rows dropped while parsing
}

// Classification summarises classified and unclassified reads.
type Classification struct {
	Classified          int64   `json:"classified"`
	Unclassified        int64   `json:"unclassified"`
	Total               int64   `json:"total"`
	ClassifiedPercent   float64 `json:"classified_percent"`
	UnclassifiedPercent float64 `json:"unclassified_percent"`
}

const (
	rankUnclassified Rank = "U"
	rankRoot         Rank = "R"
)

// Classification reads the "unclassified" (U) and "root" (R) rows.
func (r *Report) Classification() Classification {
	var c Classification
	var seenU, seenR bool
	for _, row := range r.Rows {
		switch {
		case row.Rank == rankUnclassified && !seenU:
			c.Unclassified = row.CladeReads
			c.UnclassifiedPercent = row.Percent
			seenU = true
		case row.Rank == rankRoot && !seenR:
			c.Classified = row.CladeReads
			c.ClassifiedPercent = row.Percent
			seenR = true
		}
		if seenU && seenR {
			break
		}
	}
	c.Total = c.Classified + c.Unclassified
	return c
}

// FindTaxID returns the first row with the given taxonomic id.
func (r *Report) FindTaxID(taxid string) (Row, bool) {
	for _, row := range r.Rows {
		if row.TaxID == taxid {
			return row, true
		}
	}
	return Row{}, false
}

// Empty reports whether the snapshot holds no rows.
func (r *Report) Empty() bool {
	return r == nil || len(r.Rows) == 0
}
