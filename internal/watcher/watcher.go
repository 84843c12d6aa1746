// Package watcher re-runs the preprocessor when one of its input files
// changes.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Opts configure Run.
type Opts struct {
	// Paths returns the files to watch. It is called again after every
	// Changed, since a run may include a different set of files.
	Paths func() []string

	// Changed is called after a watched file changed.
	Changed func()

	// Settle collapses the burst of events an editor produces on save.
	Settle time.Duration

	Logger *slog.Logger
}

// Run blocks until ctx is done or the watcher can't be created.
func Run(ctx context.Context, opts Opts) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("watcher loop starting")
	defer logger.Debug("watcher loop ended")

	w, err := newWatcher(opts.Paths(), logger)
	if err != nil {
		return err
	}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				_ = w.Close()
				return nil
			}
			logger.Debug("watched file had event", "event", event.String())
		case err, ok := <-w.Errors:
			if !ok {
				_ = w.Close()
				return nil
			}
			logger.Error("error whilst watching files", "err", err)
			continue
		case <-ctx.Done():
			_ = w.Close()
			return nil
		}

		// editors often replace the file, which drops it from the watch list
		_ = w.Close()
		if opts.Settle > 0 {
			select {
			case <-time.After(opts.Settle):
			case <-ctx.Done():
				return nil
			}
		}
		if opts.Changed != nil {
			opts.Changed()
		}

		// the run may have included new files
		if w, err = newWatcher(opts.Paths(), logger); err != nil {
			return err
		}
	}
}

func newWatcher(paths []string, logger *slog.Logger) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		logger.Debug("watching", "path", path)
		if err := w.Add(path); err != nil {
			logger.Warn("unable to watch", "path", path, "err", err)
		}
	}
	return w, nil
}
