package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/taxflow/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeReport ChangeType = iota
	ChangeTypeQC
	ChangeTypeBlast
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeReport:
		return "report"
	case ChangeTypeQC:
		return "qc"
	case ChangeTypeBlast:
		return "blast"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// Targets names the files and directories whose changes trigger a refresh.
// Empty entries are ignored.
type Targets struct {
	Report    string
	QCFile    string
	FastpFile string
	BlastDir  string
}

// FileWatcher watches the pipeline output locations of one run.
//
// Files are watched through their parent directory because the pipeline
// replaces them by rename and may create them after startup.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	targets Targets
	files   map[string]ChangeType // cleaned file path -> type
	events  chan ChangeEvent
	once    sync.Once
}

// NewFileWatcher creates a watcher for targets. Call Start to begin watching.
func NewFileWatcher(targets Targets) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		targets: targets,
		files:   make(map[string]ChangeType),
		events:  make(chan ChangeEvent, 16),
	}
	for path, typ := range map[string]ChangeType{
		targets.Report:    ChangeTypeReport,
		targets.QCFile:    ChangeTypeQC,
		targets.FastpFile: ChangeTypeQC,
	} {
		if path != "" {
			fw.files[filepath.Clean(path)] = typ
		}
	}
	return fw, nil
}

// Start adds the watches and processes events until ctx is cancelled.
// Locations that do not exist yet are skipped; the periodic refresh covers them.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for path := range fw.files {
		dirs[filepath.Dir(path)] = true
	}
	if fw.targets.BlastDir != "" {
		dirs[filepath.Clean(fw.targets.BlastDir)] = true
	}

	watched := 0
	for dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			logging.Debug("not watching missing directory", "path", dir)
			continue
		}
		if err := fw.watcher.Add(dir); err != nil {
			logging.Warn("failed to watch directory", "path", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no watchable directories among %d candidates", len(dirs))
	}

	logging.Info("started watching pipeline output", "directories", watched)
	go fw.processEvents(ctx)
	return nil
}

// classify maps a file system path to the change it represents.
func (fw *FileWatcher) classify(path string) (ChangeType, bool) {
	path = filepath.Clean(path)
	if typ, ok := fw.files[path]; ok {
		return typ, true
	}
	if fw.targets.BlastDir != "" && filepath.Dir(path) == filepath.Clean(fw.targets.BlastDir) {
		name := filepath.Base(path)
		if strings.HasPrefix(name, ".") {
			return 0, false
		}
		return ChangeTypeBlast, true
	}
	return 0, false
}

// processEvents forwards one ChangeEvent per relevant fsnotify event. The
// Debouncer batches them.
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.Stop()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			typ, ok := fw.classify(event.Name)
			if !ok {
				continue
			}
			logging.Trace("file changed", "path", event.Name, "type", typ, "op", event.Op.String())
			select {
			case fw.events <- ChangeEvent{Type: typ, Paths: []string{event.Name}, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop closes the underlying watcher. The event channel is closed once the
// processing goroutine has drained. Safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.once.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}
