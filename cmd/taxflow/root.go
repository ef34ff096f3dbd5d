package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ritzau/taxflow/pkg/config"
	"github.com/ritzau/taxflow/pkg/hierarchy"
	"github.com/ritzau/taxflow/pkg/logging"
	"github.com/ritzau/taxflow/pkg/output"
	"github.com/ritzau/taxflow/pkg/web"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg      *config.Config
	defaults web.Defaults
	format   output.Format
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "taxflow",
		Short: "Live taxonomic overview of a metagenomic sequencing run",
		Long: `taxflow reads the cumulative Kraken report, QC files and BLAST validation
results of a running pipeline and turns them into flow diagrams, lineage charts
and species-of-interest alerts, either in the terminal or over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	f := root.PersistentFlags()
	f.String("config", "", "config file (default config.yaml or taxflow.toml in the working directory)")
	f.String("main-dir", ".", "pipeline output directory")
	f.String("report", "", "cumulative Kraken report (default <main-dir>/kraken_cumul/kraken_cumul_report.kreport2)")
	f.String("blast-dir", "", "BLAST validation results (default <main-dir>/blast_result_files)")
	f.CountP("verbose", "v", "increase log verbosity (-v debug, -vv trace)")
	f.String("verbosity", "", "log level: trace, debug, info, warn, error")
	f.Bool("log-json", false, "log as JSON")
	f.StringSlice("domains", nil, "domains to include (Bacteria, Archaea, Eukaryota, Viruses)")
	f.StringSlice("ranks", nil, "rank letters to keep, e.g. D,P,S")
	f.Int("top", 5, "taxa kept per rank in flow diagrams")
	f.String("weight", string(hierarchy.WeightReads), "edge weight: reads or clade")
	f.String("ghost-label", hierarchy.DefaultGhostLabel, "label of placeholder nodes")
	f.Int64("min-reads", 10, "clade reads a lineage chart entry must exceed")
	f.Int("size", 15, "top list length")
	f.String("format", string(output.FormatText), "output format: text, json or yaml")

	root.AddCommand(
		newServeCmd(a),
		newSankeyCmd(a),
		newSunburstCmd(a),
		newTopListCmd(a),
		newInterestCmd(a),
		newQCBatchCmd(),
	)
	return root
}

// load reads configuration with the command's flags on top and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := logging.Configure(cfg.Verbosity, cfg.VerboseCnt, cfg.LogJSON); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	if cfg.Source != "" {
		logging.Debug("loaded config", "file", cfg.Source)
	}

	format, _ := cmd.Flags().GetString("format")
	if a.format, err = output.ParseFormat(format); err != nil {
		return err
	}
	if a.defaults, err = newDefaults(cfg); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// newDefaults turns validated configuration into query defaults.
func newDefaults(cfg *config.Config) (web.Defaults, error) {
	all, err := cfg.RankOrder()
	if err != nil {
		return web.Defaults{}, err
	}
	ranks, err := cfg.DefaultRanks(all)
	if err != nil {
		return web.Defaults{}, err
	}
	weight, err := hierarchy.ParseWeight(cfg.Sankey.Weight)
	if err != nil {
		return web.Defaults{}, err
	}
	return web.Defaults{
		AllRanks:    all,
		Ranks:       ranks,
		Domains:     cfg.Domains,
		Top:         cfg.Sankey.Top,
		Weight:      weight,
		GhostLabel:  cfg.Sankey.GhostLabel,
		MinReads:    cfg.Sunburst.MinReads,
		TopListSize: cfg.TopList.Size,
	}, nil
}
