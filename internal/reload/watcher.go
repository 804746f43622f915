// Package reload provides configuration hot-reload via file polling and signal handling.
package reload

import (
	"context"
	"os"
	"sync"
	"time"
)

const defaultPollInterval = 5 * time.Second

// WatcherConfig selects the filesystem paths polled for hot reload.
type WatcherConfig struct {
	// ConfigPath is the configuration file to watch.
	ConfigPath string

	// LayerDirs are directories whose files feed prompt layers, typically
	// the workspace layers directory. A change there requires re-resolving
	// overrides and emptying the prompt cache, not a full config reload.
	LayerDirs []string

	// PollInterval is how often the watched paths are checked.
	// Defaults to 5 seconds if zero.
	PollInterval time.Duration
}

func (c WatcherConfig) pollIntervalOrDefault() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return defaultPollInterval
}

// EventType describes what kind of watched path changed.
type EventType string

const (
	// EventConfigChanged indicates the configuration file was modified.
	EventConfigChanged EventType = "config_changed"

	// EventLayersChanged indicates a watched layer directory changed:
	// a file was added, removed, or rewritten.
	EventLayersChanged EventType = "layers_changed"
)

// Event is one filesystem change notification.
type Event struct {
	Type EventType

	// Path is the config file or layer directory that changed.
	Path string
}

// watchTarget pairs a polled path with the event it emits on change.
type watchTarget struct {
	path string
	typ  EventType
}

// Watcher polls the config file and layer directories for modifications.
// Detection is modtime-based: a directory counts as changed when its own
// modtime or any direct entry's modtime advances.
type Watcher struct {
	cfg    WatcherConfig
	events chan Event

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher. Start begins polling.
func NewWatcher(cfg WatcherConfig) *Watcher {
	return &Watcher{
		cfg:    cfg,
		events: make(chan Event, 4),
	}
}

// Start begins polling. Repeated calls are no-ops; the first one wins.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx)
}

// Events returns the channel of change notifications. Events are dropped
// rather than queued when the channel is full, since a pending reload
// already covers them.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop halts polling and waits for the poll goroutine to exit. Safe to call
// repeatedly and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	targets := w.watchTargets()
	last := make(map[string]time.Time, len(targets))
	for _, t := range targets {
		last[t.path] = newestModTime(t.path)
	}

	ticker := time.NewTicker(w.cfg.pollIntervalOrDefault())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, t := range targets {
				mod := newestModTime(t.path)
				if mod.IsZero() || !mod.After(last[t.path]) {
					continue
				}
				last[t.path] = mod
				select {
				case w.events <- Event{Type: t.typ, Path: t.path}:
				default:
				}
			}
		}
	}
}

func (w *Watcher) watchTargets() []watchTarget {
	targets := make([]watchTarget, 0, 1+len(w.cfg.LayerDirs))
	if w.cfg.ConfigPath != "" {
		targets = append(targets, watchTarget{path: w.cfg.ConfigPath, typ: EventConfigChanged})
	}
	for _, dir := range w.cfg.LayerDirs {
		targets = append(targets, watchTarget{path: dir, typ: EventLayersChanged})
	}
	return targets
}

// newestModTime reports the most recent modification under path: the file's
// own modtime, or for a directory the newest among it and its direct
// entries. Missing paths report the zero time and are skipped by the loop.
func newestModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	newest := info.ModTime()
	if !info.IsDir() {
		return newest
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return newest
	}
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
	}
	return newest
}
