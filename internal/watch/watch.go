package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"stemsplit/internal/formats"
	"stemsplit/internal/logging"
	"stemsplit/internal/pipeline"
	"stemsplit/internal/services"
)

// DefaultQuiet is how long a file must stay unchanged before it is split.
const DefaultQuiet = 2 * time.Second

// FileSplitter runs one split job. *pipeline.Splitter satisfies it.
type FileSplitter interface {
	SplitFile(ctx context.Context, input, outputDir string) pipeline.JobResult
}

// Options configures a Watcher.
type Options struct {
	Dir string
	// OutputRoot, when set, receives OutputRoot/<basename> per file. Empty
	// leaves the choice to the splitter default.
	OutputRoot string
	Quiet      time.Duration
	// Existing splits supported files already present when Run starts.
	Existing bool
	// OnResult is called after every job.
	OnResult func(pipeline.JobResult)
}

// Watcher splits supported files as they appear in a directory, one at a
// time. Files are debounced until they have been quiet for Options.Quiet.
type Watcher struct {
	opts     Options
	splitter FileSplitter
	logger   *slog.Logger

	pending map[string]time.Time
}

// New constructs a Watcher.
func New(opts Options, splitter FileSplitter, logger *slog.Logger) *Watcher {
	if opts.Quiet <= 0 {
		opts.Quiet = DefaultQuiet
	}
	return &Watcher{
		opts:     opts,
		splitter: splitter,
		logger:   logging.NewComponentLogger(logger, "watch"),
		pending:  make(map[string]time.Time),
	}
}

// Run watches until ctx ends. A job in progress finishes before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.opts.Dir)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "watch", "stat dir", w.opts.Dir, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrNotFound, "watch", "stat dir", w.opts.Dir+" is not a directory", nil)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.opts.Dir, err)
	}

	w.logger.Info("watching directory",
		logging.String(logging.FieldEventType, "watch_start"),
		logging.String("dir", w.opts.Dir),
		logging.Duration("quiet", w.opts.Quiet),
	)

	if w.opts.Existing {
		files, err := pipeline.Enumerate(w.opts.Dir)
		if err != nil {
			return err
		}
		now := time.Now().Add(-w.opts.Quiet)
		for _, file := range files {
			w.pending[file] = now
		}
	}

	ticker := time.NewTicker(w.opts.Quiet / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped",
				logging.String(logging.FieldEventType, "watch_stop"),
				logging.Int("pending", len(w.pending)),
			)
			return nil
		case evt, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.observe(evt)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some file events may have been missed"),
			)
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *Watcher) observe(evt fsnotify.Event) {
	if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) {
		if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
			delete(w.pending, evt.Name)
		}
		return
	}
	if !formats.IsSupported(evt.Name) {
		return
	}
	if _, seen := w.pending[evt.Name]; !seen {
		w.logger.Debug("file change detected", logging.Input(evt.Name))
	}
	w.pending[evt.Name] = time.Now()
}

// flush splits every pending file that has been quiet long enough, in name
// order.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.opts.Quiet {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	for _, path := range ready {
		if ctx.Err() != nil {
			return
		}
		delete(w.pending, path)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		outputDir := ""
		if w.opts.OutputRoot != "" {
			outputDir = filepath.Join(w.opts.OutputRoot, pipeline.BaseName(path))
		}
		result := w.splitter.SplitFile(ctx, path, outputDir)
		if w.opts.OnResult != nil {
			w.opts.OnResult(result)
		}
	}
}
