package skill

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// entry is a catalog record with an explicit lazy-content state.
type entry struct {
	skill  Skill
	source Source

	loaded  bool
	content string
}

// Catalog aggregates skills from registered sources. Registration is
// additive and order-sensitive: when two sources register the same name,
// the later registration's metadata and source replace the earlier one's
// (last-writer-wins), and List reflects only the surviving entry.
//
// Metadata is resident from registration; content is loaded on first
// access and cached for the catalog lifetime. Thread-safe; duplicate
// concurrent content loads are benign (idempotent, atomic replace).
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // first-registration order of surviving names

	version atomic.Int64
	logger  *slog.Logger
}

// NewCatalog creates an empty catalog.
func NewCatalog(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// RegisterSource lists the source's skills and registers each of them.
// Callers register sources in precedence order: builtin first, then
// workspace, then external sets in configured order, so later sources win
// name collisions.
func (c *Catalog) RegisterSource(src Source) error {
	metas, err := src.List()
	if err != nil {
		return fmt.Errorf("skill: listing source %s: %w", src.Name(), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, meta := range metas {
		if prev, exists := c.entries[meta.Name]; exists {
			c.logger.Debug("skill: name shadowed by later source",
				"skill", meta.Name,
				"previous_source", prev.skill.SourceName,
				"source", src.Name(),
			)
		} else {
			c.order = append(c.order, meta.Name)
		}
		// Replace wholesale: a shadowed entry's cached content is dropped
		// along with the entry itself.
		c.entries[meta.Name] = &entry{
			skill:  Skill{Metadata: meta, SourceName: src.Name()},
			source: src,
		}
	}

	c.version.Add(1)
	c.logger.Info("skill: source registered", "source", src.Name(), "skills", len(metas))
	return nil
}

// List returns the surviving skills in registration order. A nil filter
// returns everything; otherwise only skills the filter activates.
func (c *Catalog) List(f *Filter) []Skill {
	c.mu.RLock()
	defer c.mu.RUnlock()

	skills := make([]Skill, 0, len(c.order))
	for _, name := range c.order {
		skills = append(skills, c.entries[name].skill)
	}
	if f == nil {
		return skills
	}
	return f.apply(skills)
}

// Load returns the full content for a named skill, loading it from its
// source on first call and caching it thereafter.
func (c *Catalog) Load(name string) (string, error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	if ok && e.loaded {
		content := e.content
		c.mu.RUnlock()
		return content, nil
	}
	c.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSkillNotFound, name)
	}

	content, err := e.source.Load(name)
	if err != nil {
		return "", fmt.Errorf("skill: loading %q from %s: %w", name, e.source.Name(), err)
	}

	c.mu.Lock()
	// The entry may have been replaced by a later registration while the
	// content loaded; only populate if it is still the same record.
	if cur, still := c.entries[name]; still && cur == e {
		e.loaded = true
		e.content = content
	}
	c.mu.Unlock()

	return content, nil
}

// Version returns a monotonically increasing counter bumped on every
// source registration. Used as a cache fingerprint input.
func (c *Catalog) Version() int64 {
	return c.version.Load()
}

// Len returns the number of surviving skills.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
