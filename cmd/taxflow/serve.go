package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/taxflow/pkg/config"
	"github.com/ritzau/taxflow/pkg/history"
	"github.com/ritzau/taxflow/pkg/logging"
	"github.com/ritzau/taxflow/pkg/metrics"
	"github.com/ritzau/taxflow/pkg/pubsub"
	"github.com/ritzau/taxflow/pkg/refresh"
	"github.com/ritzau/taxflow/pkg/web"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live dashboard API",
		Long: `Serve the dashboard API and keep it current. The report is reread when the
pipeline writes new output and every --interval seconds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	f := cmd.Flags()
	f.Int("port", 8050, "HTTP port")
	f.Bool("watch", true, "refresh when pipeline output changes")
	f.Int("interval", 10, "seconds between periodic refreshes, 0 disables")
	f.String("history", config.DefaultHistoryFile, "refresh history database under --main-dir or a path, empty disables")
	return cmd
}

func (a *app) runnerSettings() refresh.Settings {
	cfg := a.cfg
	// Without query values only defaults apply, which cannot fail.
	sankey, _ := a.defaults.SankeyOptions(nil)
	return refresh.Settings{
		Report:     cfg.Report,
		QCFile:     cfg.QCFile,
		FastpFile:  cfg.FastpFile,
		BlastDir:   cfg.BlastDir,
		Species:    cfg.SpeciesOfInterest,
		Thresholds: cfg.Thresholds(),
		Sankey:     sankey,
		Interval:   time.Duration(cfg.UpdateEvery) * time.Second,
		Watch:      cfg.Watch,
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	var opts []refresh.Option
	if cfg.History != "" {
		store, err := history.Open(cfg.History)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, refresh.WithHistory(store))
		logging.Info("recording refresh history", "path", cfg.History)
	}

	reg := metrics.NewRegistry()
	pub := pubsub.NewSSEPublisher()
	defer pub.Close()
	opts = append(opts, refresh.WithPublisher(pub), refresh.WithMetrics(reg))

	runner := refresh.NewRunner(a.runnerSettings(), opts...)
	server := web.NewServer(runner, pub, reg, a.defaults)

	logging.Info("watching pipeline output",
		"report", cfg.Report,
		"watch", cfg.Watch,
		"interval", cfg.UpdateEvery,
		"species", len(cfg.SpeciesOfInterest))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Serve(gctx)
	})
	g.Go(func() error {
		return server.Start(gctx, cfg.Port)
	})
	return g.Wait()
}
