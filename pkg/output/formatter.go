package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/taxflow/pkg/hierarchy"
	"github.com/ritzau/taxflow/pkg/projections"
	"github.com/ritzau/taxflow/pkg/qc"
	"github.com/ritzau/taxflow/pkg/taxonomy"
)

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

func levelColor(l projections.Level) *color.Color {
	switch l {
	case projections.LevelDanger:
		return red
	case projections.LevelWarning:
		return yellow
	default:
		return green
	}
}

func header(w io.Writer, title string) {
	bold.Fprintln(w, title)
	bold.Fprintln(w, strings.Repeat("=", len(title)))
}

func waiting(w io.Writer) {
	faint.Fprintln(w, hierarchy.PlaceholderLabel)
}

// PrintTopList prints the abundance list, one line per taxon.
func PrintTopList(w io.Writer, entries []projections.TopEntry) {
	header(w, "Most abundant taxa")
	if len(entries) == 0 {
		waiting(w)
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%3d. ", e.Index)
		cyan.Fprintf(w, "%-40s", e.Name)
		fmt.Fprintf(w, " %-3s %10d reads  (taxid %s)\n", e.Rank, e.Reads, e.TaxID)
	}
}

// PrintInterest prints the species of interest table and the gauge.
func PrintInterest(w io.Writer, rows []projections.InterestRow, g projections.GaugeReading) {
	header(w, "Species of interest")
	if len(rows) == 0 {
		faint.Fprintln(w, "no species configured")
		return
	}
	for _, r := range rows {
		c := levelColor(r.Level)
		c.Fprintf(w, "%-8s", strings.ToUpper(string(r.Level)))
		fmt.Fprintf(w, " %-40s %10d reads %6.2f%%", r.Name, r.Reads, r.Percent)
		if r.Validated != nil {
			fmt.Fprintf(w, "  validated %d", *r.Validated)
		}
		if !r.Found {
			faint.Fprint(w, "  (not in report)")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	levelColor(g.Level).Fprintf(w, "Gauge: log10 %.2f (warning %.2f, danger %.2f)\n", g.Value, g.Warning, g.Danger)
}

// PrintSankey prints the flow diagram as a list of labelled links.
func PrintSankey(w io.Writer, s *hierarchy.Sankey) {
	header(w, "Taxonomic flow")
	if s.Placeholder {
		waiting(w)
		return
	}
	label := func(id int) string {
		if id >= 0 && id < len(s.Labels) {
			return s.Labels[id]
		}
		return fmt.Sprintf("#%d", id)
	}
	for _, e := range s.Edges {
		line := fmt.Sprintf("%s -> %s", label(e.Source), label(e.Target))
		if e.Rank == taxonomy.GhostRank {
			faint.Fprintf(w, "  %-60s %10d\n", line, e.Value)
			continue
		}
		fmt.Fprintf(w, "  %-60s %10d\n", line, e.Value)
	}
	fmt.Fprintf(w, "%d links, %d placeholder nodes\n", len(s.Edges), s.Ghosts)
}

// PrintSunburst prints the lineage tree, indented by depth.
func PrintSunburst(w io.Writer, s *hierarchy.Sunburst) {
	header(w, "Lineages")
	if s.Placeholder || len(s.Entries) == 0 {
		waiting(w)
		return
	}
	for _, e := range s.Entries {
		if e.ID == hierarchy.SunburstRoot {
			continue
		}
		depth := max(len(e.Path)-1, 0)
		fmt.Fprint(w, strings.Repeat("  ", depth))
		cyan.Fprintf(w, "%s", e.Label)
		fmt.Fprintf(w, " [%s] %d\n", e.Rank, e.CladeReads)
	}
}

// PrintQC prints the classification split and the read filter summary.
func PrintQC(w io.Writer, c taxonomy.Classification, f qc.FilterSummary) {
	header(w, "Quality control")
	fmt.Fprintf(w, "Classified:   %10d (%.2f%%)\n", c.Classified, c.ClassifiedPercent)
	fmt.Fprintf(w, "Unclassified: %10d (%.2f%%)\n", c.Unclassified, c.UnclassifiedPercent)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Reads before filtering: %d\n", f.PreFilterReads)
	green.Fprintf(w, "Passed:  %10d (%.1f%%)\n", f.Passed, f.PassedPercent)

	removed := green
	if f.Removed > 0 {
		removed = yellow
	}
	removed.Fprintf(w, "Removed: %10d (%.1f%%)\n", f.Removed, f.RemovedPercent)
	fmt.Fprintf(w, "  low quality  %10d (%.1f%%)\n", f.LowQuality, f.LowQualityPercent)
	fmt.Fprintf(w, "  too many N   %10d (%.1f%%)\n", f.TooManyN, f.TooManyNPercent)
	fmt.Fprintf(w, "  too short    %10d (%.1f%%)\n", f.TooShort, f.TooShortPercent)
}
