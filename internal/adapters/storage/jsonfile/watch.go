package jsonfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of events from one rewrite.
const DefaultDebounce = 150 * time.Millisecond

// Logger receives store and watcher diagnostics.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
}

// WatchOptions configures Watch.
type WatchOptions struct {
	Debounce time.Duration
	Logger   Logger
}

// Watch calls onChange whenever another process rewrites the store file.
// Writes made through s itself are ignored. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(), opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Rewrites replace the file by rename, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	fire := func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.Warn("json store reread failed", "path", s.path, "err", err)
			}
			return
		}
		if s.ownWrite(data) {
			return
		}
		if opts.Logger != nil {
			opts.Logger.Debug("json store changed externally", "path", s.path)
		}
		onChange()
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(opts.Debounce, fire)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if opts.Logger != nil {
				opts.Logger.Warn("json store watcher error", "err", err)
			}
		}
	}
}
