// Package watch triggers rebuilds when chapter sources or the manifest
// change on disk. Events are debounced so one editor save produces one
// rebuild, not one per temp-file shuffle.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"quire/internal/logging"
)

// DefaultDebounce is how long the watcher waits after the last event
// before firing the callback.
const DefaultDebounce = 300 * time.Millisecond

// Watcher observes a set of paths and invokes a callback after changes
// settle. The callback runs on the watcher's goroutine; a rebuild in
// flight absorbs events that arrive while it runs.
type Watcher struct {
	Debounce time.Duration
	OnChange func(ctx context.Context) error

	log *slog.Logger
}

func New(onChange func(ctx context.Context) error) *Watcher {
	return &Watcher{
		Debounce: DefaultDebounce,
		OnChange: onChange,
		log:      logging.New("watch"),
	}
}

// Run watches the given paths until ctx is cancelled. Directories are
// watched directly; for plain files the parent directory is watched so
// rename-over-save editors are still seen.
func (w *Watcher) Run(ctx context.Context, paths ...string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	seen := map[string]bool{}
	for _, p := range paths {
		dir := filepath.Dir(p)
		if info, statErr := os.Stat(p); statErr == nil && info.IsDir() {
			dir = p
		}
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.log.Debug("watching", "dir", dir)
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.log.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			pending++
			timer.Reset(debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		case <-timer.C:
			if pending == 0 {
				continue
			}
			n := pending
			pending = 0
			w.log.Info("rebuilding", "events", n)
			if err := w.OnChange(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.log.Error("rebuild failed", "error", err)
			}
		}
	}
}

// relevant filters out chmod noise and editor swap files.
func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(ev.Name)
	if len(base) > 0 && (base[0] == '.' || base[len(base)-1] == '~') {
		return false
	}
	ext := filepath.Ext(base)
	switch ext {
	case ".md", ".yaml", ".yml", ".json", ".toml", ".tex", ".R", ".r":
		return true
	}
	return false
}
