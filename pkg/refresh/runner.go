// Package refresh keeps the current snapshot of a sequencing run up to date.
// A Runner rereads the pipeline output when files change or a ticker fires,
// rebuilds every projection and swaps the result in atomically.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ritzau/taxflow/pkg/history"
	"github.com/ritzau/taxflow/pkg/hierarchy"
	"github.com/ritzau/taxflow/pkg/logging"
	"github.com/ritzau/taxflow/pkg/metrics"
	"github.com/ritzau/taxflow/pkg/projections"
	"github.com/ritzau/taxflow/pkg/pubsub"
	"github.com/ritzau/taxflow/pkg/qc"
	"github.com/ritzau/taxflow/pkg/taxonomy"
	"github.com/ritzau/taxflow/pkg/watcher"
)

// Refresh triggers.
const (
	ReasonStartup = "startup"
	ReasonWatcher = "watcher"
	ReasonTicker  = "ticker"
	ReasonManual  = "manual"
)

// Debounce windows for file change bursts.
const (
	quietPeriod = 500 * time.Millisecond
	maxWait     = 5 * time.Second
)

// Settings locate the pipeline output and configure the derived views.
type Settings struct {
	Report     string
	QCFile     string
	FastpFile  string
	BlastDir   string
	Species    []projections.Species
	Thresholds projections.Thresholds
	Sankey     hierarchy.SankeyOptions // default selection summarised in status events
	Interval   time.Duration           // periodic refresh, 0 disables
	Watch      bool
}

// Options selects which parts of the snapshot a run reloads. Skipped parts
// are carried over from the current snapshot.
type Options struct {
	SkipReport     bool
	SkipQC         bool
	SkipValidation bool
	Reason         string
}

// optionsFor turns a watcher change analysis into run options.
func optionsFor(a *watcher.ChangeAnalysis, reason string) Options {
	return Options{
		SkipReport:     !a.NeedReport,
		SkipQC:         !a.NeedQC,
		SkipValidation: !a.NeedValidation,
		Reason:         reason,
	}
}

// Runner orchestrates refresh runs. It is safe for concurrent use; runs are
// serialized and readers never block on a run in progress.
type Runner struct {
	settings Settings
	pub      pubsub.Publisher
	metrics  *metrics.Registry
	history  *history.Store

	mu      sync.Mutex // one run at a time
	current atomic.Pointer[Snapshot]
	status  atomic.Pointer[pubsub.RefreshStatus]
}

// Option configures a Runner.
type Option func(*Runner)

// WithPublisher publishes a TopicRefresh event for every run.
func WithPublisher(p pubsub.Publisher) Option {
	return func(r *Runner) { r.pub = p }
}

// WithMetrics records run and snapshot metrics.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithHistory stores a summary of every successful run.
func WithHistory(h *history.Store) Option {
	return func(r *Runner) { r.history = h }
}

// NewRunner creates a runner. Nothing is read until the first run.
func NewRunner(settings Settings, opts ...Option) *Runner {
	r := &Runner{settings: settings}
	for _, opt := range opts {
		opt(r)
	}
	r.status.Store(&pubsub.RefreshStatus{State: pubsub.StateWaiting, Message: "no refresh yet"})
	return r
}

// Settings returns the runner configuration.
func (r *Runner) Settings() Settings {
	return r.settings
}

// Snapshot returns the current snapshot, nil before the first run.
func (r *Runner) Snapshot() *Snapshot {
	return r.current.Load()
}

// Status returns the outcome of the last run.
func (r *Runner) Status() pubsub.RefreshStatus {
	return *r.status.Load()
}

// History returns the history store, nil when history is disabled.
func (r *Runner) History() *history.Store {
	return r.history
}

// Refresh reloads everything.
func (r *Runner) Refresh(ctx context.Context, reason string) error {
	return r.Run(ctx, Options{Reason: reason})
}

// Run executes one refresh with the given options. A missing report is not
// an error: the snapshot is published in the waiting state. Unreadable QC
// files fall back to placeholder tables. A report that cannot be read leaves
// the current snapshot in place.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	logging.DebugContext(ctx, "refresh started", "reason", opts.Reason,
		"report", !opts.SkipReport, "qc", !opts.SkipQC, "validation", !opts.SkipValidation)
	r.publish(pubsub.RefreshStatus{State: pubsub.StateRefreshing, Reason: opts.Reason})

	prev := r.current.Load()
	next := prev.clone()
	if prev == nil {
		// Nothing to carry over.
		opts.SkipReport, opts.SkipQC, opts.SkipValidation = false, false, false
	}

	if !opts.SkipReport {
		report, err := taxonomy.LoadReport(r.settings.Report)
		switch {
		case errors.Is(err, taxonomy.ErrNoData):
			report = nil
		case err != nil:
			r.fail(ctx, opts.Reason, start, err)
			return fmt.Errorf("refresh report: %w", err)
		}
		next.Report = report
		next.Classification = taxonomy.Classification{}
		if report != nil {
			next.Classification = report.Classification()
		}
		next.Sankey = hierarchy.BuildSankey(report, r.settings.Sankey)
		opts.SkipValidation = false
	}

	// QC tables are companions of the report: unreadable files degrade to
	// placeholders and never fail the run.
	if !opts.SkipQC {
		timeline, err := qc.LoadTimeline(r.settings.QCFile)
		if err != nil {
			logging.WarnContext(ctx, "qc timeline unavailable", "path", r.settings.QCFile, "error", err)
			timeline = qc.PlaceholderTimeline()
		}
		fastp, err := qc.LoadFastp(r.settings.FastpFile)
		if err != nil {
			logging.WarnContext(ctx, "fastp summary unavailable", "path", r.settings.FastpFile, "error", err)
			fastp = qc.PlaceholderFastp()
		}
		next.Timeline = timeline
		next.Fastp = fastp
		next.Filter = qc.Summarize(fastp, qc.TotalReads(timeline))
	}

	if !opts.SkipValidation {
		var rows []taxonomy.Row
		if next.Report != nil {
			rows = next.Report.Rows
		}
		table := projections.SpeciesTable(rows, r.settings.Species, r.settings.Thresholds)
		projections.Validate(table, r.settings.BlastDir)
		next.Interest = table
		next.Gauge = projections.Gauge(table, r.settings.Thresholds)
	}

	next.UpdatedAt = time.Now()
	next.Version = 1
	if prev != nil {
		next.Version = prev.Version + 1
	}
	r.current.Store(next)

	status := r.summarize(next, opts.Reason)
	if next.Waiting() {
		status.State = pubsub.StateWaiting
		status.Message = "waiting for report " + r.settings.Report
		r.recordMetrics(next, opts.Reason, metrics.StatusWaiting, time.Since(start))
		logging.InfoContext(ctx, "no report yet", "path", r.settings.Report, "reason", opts.Reason)
	} else {
		r.recordMetrics(next, opts.Reason, metrics.StatusOK, time.Since(start))
		r.recordHistory(ctx, next, status)
		logging.InfoContext(ctx, "refresh complete", "reason", opts.Reason, "rows", status.Rows,
			"skipped", status.Skipped, "edges", status.Edges, "ghosts", status.Ghosts,
			"duration", time.Since(start).Round(time.Millisecond))
	}
	r.publish(status)
	return nil
}

func (r *Runner) summarize(s *Snapshot, reason string) pubsub.RefreshStatus {
	st := pubsub.RefreshStatus{
		State:     pubsub.StateReady,
		Reason:    reason,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Report != nil {
		st.Rows = len(s.Report.Rows)
		st.Skipped = s.Report.Skipped
	}
	if s.Sankey != nil && !s.Sankey.Placeholder {
		st.Nodes = len(s.Sankey.Labels)
		st.Edges = len(s.Sankey.Edges)
		st.Ghosts = s.Sankey.Ghosts
	}
	return st
}

func (r *Runner) fail(ctx context.Context, reason string, start time.Time, err error) {
	logging.ErrorContext(ctx, "refresh failed", "reason", reason, "error", err)
	if r.metrics != nil {
		r.metrics.RecordRefresh(reason, metrics.StatusError, time.Since(start))
	}
	r.publish(pubsub.RefreshStatus{
		State:     pubsub.StateFailed,
		Reason:    reason,
		Message:   err.Error(),
		UpdatedAt: time.Now(),
	})
}

func (r *Runner) publish(status pubsub.RefreshStatus) {
	if status.State != pubsub.StateRefreshing {
		r.status.Store(&status)
	}
	if r.pub == nil {
		return
	}
	if err := r.pub.Publish(pubsub.TopicRefresh, status.State, status); err != nil {
		logging.Debug("refresh event not published", "state", status.State, "error", err)
	}
}

func (r *Runner) recordMetrics(s *Snapshot, reason, outcome string, d time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordRefresh(reason, outcome, d)
	st := r.summarize(s, reason)
	r.metrics.UpdateSnapshot(metrics.SnapshotSize{
		Rows:            st.Rows,
		Skipped:         st.Skipped,
		Nodes:           st.Nodes,
		Edges:           st.Edges,
		Ghosts:          st.Ghosts,
		ClassifiedReads: s.Classification.Classified,
	})
	r.metrics.UpdateInterest(s.Interest)
}

func (r *Runner) recordHistory(ctx context.Context, s *Snapshot, st pubsub.RefreshStatus) {
	if r.history == nil {
		return
	}
	rec := history.Refresh{
		RecordedAt:        s.UpdatedAt,
		Reason:            st.Reason,
		Rows:              st.Rows,
		Skipped:           st.Skipped,
		ClassifiedReads:   s.Classification.Classified,
		UnclassifiedReads: s.Classification.Unclassified,
		Nodes:             st.Nodes,
		Edges:             st.Edges,
		Ghosts:            st.Ghosts,
	}
	for _, row := range s.Interest {
		rec.Interest = append(rec.Interest, history.InterestCount{
			TaxID: row.TaxID,
			Name:  row.Name,
			Reads: row.Reads,
			Level: row.Level,
		})
	}
	if _, err := r.history.Record(ctx, rec); err != nil {
		logging.WarnContext(ctx, "history not recorded", "error", err)
	}
}

// Serve runs an initial refresh, then refreshes on file changes (when
// watching) and on every tick until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context) error {
	if err := r.Refresh(ctx, ReasonStartup); err != nil {
		logging.Warn("initial refresh failed", "error", err)
	}

	var changes <-chan watcher.ChangeEvent
	if r.settings.Watch {
		changes = r.watch(ctx)
	}

	var tick <-chan time.Time
	if r.settings.Interval > 0 {
		ticker := time.NewTicker(r.settings.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			analysis := watcher.AnalyzeChanges(ev)
			// Drain whatever else the debouncer flushed in the same batch.
		drain:
			for {
				select {
				case more, ok := <-changes:
					if !ok {
						changes = nil
						break drain
					}
					analysis.Merge(watcher.AnalyzeChanges(more))
				default:
					break drain
				}
			}
			if !analysis.Any() {
				continue
			}
			logging.Debug("files changed", "count", len(analysis.ChangedFiles))
			if err := r.Run(ctx, optionsFor(analysis, ReasonWatcher)); err != nil {
				logging.Warn("refresh after file change failed", "error", err)
			}

		case <-tick:
			if err := r.Refresh(ctx, ReasonTicker); err != nil {
				logging.Warn("periodic refresh failed", "error", err)
			}
		}
	}
}

// watch starts the file watcher and debouncer. It returns nil, which blocks
// forever in a select, when nothing can be watched.
func (r *Runner) watch(ctx context.Context) <-chan watcher.ChangeEvent {
	fw, err := watcher.NewFileWatcher(watcher.Targets{
		Report:    r.settings.Report,
		QCFile:    r.settings.QCFile,
		FastpFile: r.settings.FastpFile,
		BlastDir:  r.settings.BlastDir,
	})
	if err != nil {
		logging.Warn("file watching disabled", "error", err)
		return nil
	}
	if err := fw.Start(ctx); err != nil {
		logging.Warn("file watching disabled", "error", err)
		fw.Stop()
		return nil
	}

	d := watcher.NewDebouncer(fw.Events(), quietPeriod, maxWait)
	d.Start(ctx)
	return d.Output()
}
