package layer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmertens/ctxweave/internal/hook"
)

// OverridesSubdir is the well-known subdirectory under a workspace root
// that holds per-layer override files (one .md file per layer name).
const OverridesSubdir = "layers"

// Store resolves named prompt layers against base configuration paths and
// workspace overrides. Loads are lazy and cached for the instance lifetime;
// Reload drops the cache so the next access re-reads sources.
//
// Thread-safe. The hook registry is an explicit reference, never ambient.
type Store struct {
	mu        sync.RWMutex
	base      map[string]string // layer name -> base file path
	overrides map[string]string // layer name -> workspace file path
	loaded    map[string]Layer

	version atomic.Int64

	hooks  *hook.Registry
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a Store for the given base layer paths. The hooks
// registry may be nil, in which case no events are fired.
func NewStore(basePaths map[string]string, hooks *hook.Registry, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	base := make(map[string]string, len(basePaths))
	for name, path := range basePaths {
		base[name] = path
	}
	return &Store{
		base:      base,
		overrides: make(map[string]string),
		loaded:    make(map[string]Layer),
		hooks:     hooks,
		logger:    logger,
		now:       time.Now,
	}
}

// Load returns the layer with the given name, reading it from disk on
// first access and caching it thereafter. Workspace overrides take
// precedence over base paths. Fires the layer.loaded hook once per actual
// load — never on a cache hit.
func (s *Store) Load(ctx context.Context, name string) (Layer, error) {
	s.mu.RLock()
	if l, ok := s.loaded[name]; ok {
		s.mu.RUnlock()
		return l, nil
	}
	path, source, ok := s.resolveLocked(name)
	s.mu.RUnlock()

	if !ok {
		return Layer{}, fmt.Errorf("%w: %q", ErrLayerNotFound, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Layer{}, fmt.Errorf("layer: reading %q from %s: %w", name, path, err)
	}

	l := Layer{
		Name:     name,
		Content:  strings.TrimSpace(string(data)),
		Source:   source,
		LoadedAt: s.now(),
	}

	s.mu.Lock()
	// Another goroutine may have loaded concurrently; last write wins,
	// which is safe because the content is identical for a given version.
	s.loaded[name] = l
	s.mu.Unlock()

	if s.hooks != nil {
		if err := s.hooks.Trigger(ctx, hook.EventLayerLoaded, hook.Payload{
			"layer":   name,
			"content": l.Content,
			"source":  string(l.Source),
		}); err != nil {
			s.logger.Warn("layer: load hook errors", "layer", name, "error", err)
		}
	}

	return l, nil
}

// resolveLocked returns the source path for a layer name. Caller must hold
// at least a read lock.
func (s *Store) resolveLocked(name string) (path string, source SourceKind, ok bool) {
	if p, exists := s.overrides[name]; exists {
		return p, SourceWorkspace, true
	}
	if p, exists := s.base[name]; exists {
		return p, SourceBase, true
	}
	return "", "", false
}

// ResolveOverrides scans workspacePath/layers for override files. Every
// .md file found registers a workspace override for the layer named after
// the file (without extension), replacing its base counterpart wholesale.
// Layers whose override disappeared revert to their base source.
//
// Cached content for affected layers is dropped and the store version is
// bumped, so dependent caches can re-key.
func (s *Store) ResolveOverrides(workspacePath string) error {
	dir := filepath.Join(workspacePath, OverridesSubdir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// No override directory: clear any previously resolved overrides.
			s.clearOverrides()
			return nil
		}
		return fmt.Errorf("layer: scanning overrides in %s: %w", dir, err)
	}

	found := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		found[name] = filepath.Join(dir, entry.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for name, path := range found {
		if s.overrides[name] != path {
			changed = true
		}
		s.overrides[name] = path
		delete(s.loaded, name)
	}
	for name := range s.overrides {
		if _, still := found[name]; !still {
			delete(s.overrides, name)
			delete(s.loaded, name)
			changed = true
		}
	}

	if changed {
		s.version.Add(1)
		s.logger.Info("layer: workspace overrides resolved",
			"dir", dir,
			"count", len(found),
		)
	}
	return nil
}

func (s *Store) clearOverrides() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.overrides) == 0 {
		return
	}
	for name := range s.overrides {
		delete(s.loaded, name)
	}
	s.overrides = make(map[string]string)
	s.version.Add(1)
}

// Reload drops all cached layer content and bumps the store version.
// The next Load for each layer re-reads its source and re-fires the
// layer.loaded hook.
func (s *Store) Reload() {
	s.mu.Lock()
	s.loaded = make(map[string]Layer)
	s.mu.Unlock()
	s.version.Add(1)
}

// Version returns a monotonically increasing counter bumped whenever the
// set of layer sources changes. Used as a cache fingerprint input.
func (s *Store) Version() int64 {
	return s.version.Load()
}

// Names returns all defined layer names (base and override), sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.base)+len(s.overrides))
	for name := range s.base {
		seen[name] = struct{}{}
	}
	for name := range s.overrides {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
