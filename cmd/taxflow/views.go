package main

import (
	"errors"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ritzau/taxflow/pkg/hierarchy"
	"github.com/ritzau/taxflow/pkg/logging"
	"github.com/ritzau/taxflow/pkg/output"
	"github.com/ritzau/taxflow/pkg/projections"
	"github.com/ritzau/taxflow/pkg/taxonomy"
)

// loadReport reads the configured report. A missing or empty report is not
// an error; views render their placeholder instead.
func (a *app) loadReport() (*taxonomy.Report, error) {
	report, err := taxonomy.LoadReport(a.cfg.Report)
	if errors.Is(err, taxonomy.ErrNoData) {
		logging.Warn("no report yet", "path", a.cfg.Report)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if report.Skipped > 0 {
		logging.Debug("skipped malformed report rows", "count", report.Skipped)
	}
	return report, nil
}

// render writes v in the selected structured format, or calls text.
func (a *app) render(cmd *cobra.Command, v any, text func()) error {
	if a.format == output.FormatText {
		text()
		return nil
	}
	return output.Encode(cmd.OutOrStdout(), a.format, v)
}

func newSankeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sankey",
		Short: "Print the taxonomic flow diagram",
		Example: `  taxflow sankey --ranks D,P,G,S --top 3
  taxflow sankey --domains Bacteria --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.defaults.SankeyOptions(nil)
			if err != nil {
				return err
			}
			report, err := a.loadReport()
			if err != nil {
				return err
			}
			sankey := hierarchy.BuildSankey(report, opts)
			return a.render(cmd, sankey, func() { output.PrintSankey(cmd.OutOrStdout(), sankey) })
		},
	}
}

func newSunburstCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "sunburst",
		Aliases: []string{"lineages"},
		Short:   "Print the lineage tree of the report",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.defaults.SunburstOptions(nil)
			if err != nil {
				return err
			}
			report, err := a.loadReport()
			if err != nil {
				return err
			}
			sunburst := hierarchy.BuildSunburst(report, opts)
			return a.render(cmd, sunburst, func() { output.PrintSunburst(cmd.OutOrStdout(), sunburst) })
		},
	}
}

func newTopListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toplist",
		Short: "Print the most abundant taxa",
		Long: `Print the most abundant taxa by reads. Without --ranks only the lowest
configured rank is listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if cmd.Flags().Changed("ranks") {
				ranks, _ := cmd.Flags().GetStringSlice("ranks")
				q.Set("ranks", strings.Join(ranks, ","))
			}
			opts, err := a.defaults.TopListOptions(q)
			if err != nil {
				return err
			}
			report, err := a.loadReport()
			if err != nil {
				return err
			}

			entries := []projections.TopEntry{}
			if report != nil {
				entries = projections.TopList(report.Rows, opts)
			}
			return a.render(cmd, entries, func() { output.PrintTopList(cmd.OutOrStdout(), entries) })
		},
	}
}

type interestResult struct {
	Species []projections.InterestRow `json:"species" yaml:"species"`
	Gauge   projections.GaugeReading  `json:"gauge" yaml:"gauge"`
}

func newInterestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interest",
		Short: "Print read counts of the configured species of interest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.loadReport()
			if err != nil {
				return err
			}
			var rows []taxonomy.Row
			if report != nil {
				rows = report.Rows
			}

			thresholds := a.cfg.Thresholds()
			table := projections.SpeciesTable(rows, a.cfg.SpeciesOfInterest, thresholds)
			if validate, _ := cmd.Flags().GetBool("validate"); validate {
				projections.Validate(table, a.cfg.BlastDir)
			}
			res := interestResult{Species: table, Gauge: projections.Gauge(table, thresholds)}
			return a.render(cmd, res, func() { output.PrintInterest(cmd.OutOrStdout(), res.Species, res.Gauge) })
		},
	}
	cmd.Flags().Bool("validate", false, "add BLAST validated read counts")
	return cmd
}
