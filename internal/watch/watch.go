// Package watch re-runs a callback when a single file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before the callback runs.
const DefaultDebounce = 200 * time.Millisecond

// FileWatcher watches one file. The parent directory is watched so that
// editors replacing the file through a rename are still seen.
type FileWatcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
}

// Start begins watching path. Events are buffered by fsnotify until Run is called.
func Start(path string, debounce time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	return &FileWatcher{path: abs, debounce: debounce, logger: logger, watcher: watcher}, nil
}

// Path returns the absolute path being watched.
func (w *FileWatcher) Path() string { return w.path }

// Run calls onChange after every burst of writes to the file until ctx is
// done. Callbacks never overlap. A callback error is logged and watching
// continues. Run closes the watcher before returning.
func (w *FileWatcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	defer func() { _ = w.watcher.Close() }()

	var debounceTimer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}

			w.logger.Debug("file changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if err := onChange(ctx); err != nil {
				w.logger.Warn("re-run failed", slog.String("path", w.path), slog.Any("error", err))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}
