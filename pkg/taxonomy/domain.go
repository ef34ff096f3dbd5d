package taxonomy

import "sort"

// KnownDomains is the closed set of top-level domains recognised in reports.
var KnownDomains = []string{"Bacteria", "Archaea", "Eukaryota", "Viruses"}

// DomainRange is the half-open row range [Start, End) belonging to one domain.
type DomainRange struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// PartitionDomains splits rows into one contiguous range per domain present.
//
// A domain starts at the first row whose name equals the domain name and ends
// where the next present domain starts; the last one runs to the end of the
// table. Domains that never occur are skipped.
func PartitionDomains(rows []Row, known []string) []DomainRange {
	var ranges []DomainRange
	for _, name := range known {
		for i, row := range rows {
			if row.Name == name {
				ranges = append(ranges, DomainRange{Name: name, Start: i})
				break
			}
		}
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Start < ranges[j].Start
	})

	for i := range ranges {
		if i+1 < len(ranges) {
			ranges[i].End = ranges[i+1].Start
		} else {
			ranges[i].End = len(rows)
		}
	}
	return ranges
}

// FilterDomains keeps the rows of the selected domains, in report order.
func FilterDomains(rows []Row, known, selected []string) []Row {
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		want[name] = true
	}

	var out []Row
	for _, dr := range PartitionDomains(rows, known) {
		if want[dr.Name] {
			out = append(out, rows[dr.Start:dr.End]...)
		}
	}
	return out
}

// IsKnownDomain reports whether name is one of KnownDomains.
func IsKnownDomain(name string) bool {
	for _, d := range KnownDomains {
		if d == name {
			return true
		}
	}
	return false
}
