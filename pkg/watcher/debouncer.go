package watcher

import (
	"context"
	"time"

	"github.com/ritzau/taxflow/pkg/logging"
)

// Debouncer batches rapid file system events so that a report rewritten in
// several chunks triggers one refresh.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a debouncer that flushes after quietPeriod without new
// events, or at the latest maxWait after the first event of a batch.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 4),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet       = newStoppedTimer()
		maxWait     = newStoppedTimer()
		pending     bool
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)

	flush := func() {
		quiet.Stop()
		maxWait.Stop()
		pending = false
		if eventCount == 0 {
			return
		}
		logging.Debug("flushing accumulated events", "count", eventCount)

		// Report first: it is the expensive reload and the others depend on it.
		for _, typ := range []ChangeType{ChangeTypeReport, ChangeTypeQC, ChangeTypeBlast} {
			paths := accumulated[typ]
			if len(paths) == 0 {
				continue
			}
			select {
			case d.output <- ChangeEvent{Type: typ, Paths: dedupe(paths), Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			eventCount++

			quiet.Reset(d.quietPeriod)
			if !pending {
				maxWait.Reset(d.maxWait)
				pending = true
			}

		case <-quiet.C:
			flush()

		case <-maxWait.C:
			flush()
		}
	}
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
