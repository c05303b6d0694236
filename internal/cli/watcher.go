package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the rules directory must stay quiet before a
// reload.
const DefaultDebounce = 300 * time.Millisecond

// RulesWatcher reloads a rules directory after its .cue files change.
// Bursts of events (editor saves, checkouts) collapse into one reload once
// the directory has been quiet for the debounce window.
type RulesWatcher struct {
	dir      string
	debounce time.Duration
	reload   func(ctx context.Context) error
}

// NewRulesWatcher creates a watcher that calls reload after changes to dir.
func NewRulesWatcher(dir string, debounce time.Duration, reload func(ctx context.Context) error) *RulesWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &RulesWatcher{dir: dir, debounce: debounce, reload: reload}
}

// Run watches until ctx is cancelled. Reload errors are logged and the
// watcher keeps going; only setup failures are returned.
func (w *RulesWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("rules watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("rules watcher: watch %s: %w", w.dir, err)
	}
	slog.Info("watching rules", "dir", w.dir, "debounce", w.debounce)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var lastEvent time.Time
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			slog.Debug("rules file event", "path", ev.Name, "op", ev.Op.String())
			pending[ev.Name] = struct{}{}
			lastEvent = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("rules watcher error", "error", err)

		case now := <-ticker.C:
			if len(pending) == 0 || now.Sub(lastEvent) < w.debounce {
				continue
			}
			slog.Info("rules changed, reloading", "files", len(pending))
			clear(pending)
			if err := w.reload(ctx); err != nil {
				slog.Error("rules reload failed", "dir", w.dir, "error", err)
			}
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if filepath.Ext(ev.Name) != ".cue" {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
