package ctxengine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmertens/ctxweave/internal/hook"
)

// cacheEntry is an immutable cached value with its creation time and
// integrity digest. Entries are replaced atomically, never mutated in
// place.
type cacheEntry struct {
	value     StaticSections
	createdAt time.Time
	ttl       time.Duration
	sum       [32]byte
}

// CacheStats is a point-in-time view of cache counters.
type CacheStats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Corruptions int64 `json:"corruptions"`
	Entries     int   `json:"entries"`
}

// Cache memoizes assembled static prompt portions keyed by content
// fingerprint, with time-based invalidation. A miss recomputes the entire
// entry; there is no partial invalidation.
//
// Compute functions run outside the lock, so concurrent callers racing on
// the same fingerprint may both compute — acceptable because recomputation
// is idempotent and pure. An entry is only written after its compute
// succeeds, so an aborted assembly never leaves a partially-written entry.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	hits        atomic.Int64
	misses      atomic.Int64
	corruptions atomic.Int64

	hooks  *hook.Registry
	logger *slog.Logger
	now    func() time.Time
}

// NewCache creates an empty cache. The hooks registry may be nil.
func NewCache(hooks *hook.Registry, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		hooks:   hooks,
		logger:  logger,
		now:     time.Now,
	}
}

// GetOrCompute returns the cached value for fingerprint when a live entry
// exists, otherwise invokes compute and stores the result with a fresh
// creation time. The returned bool reports whether the value was served
// from cache.
//
// A corrupted entry (integrity digest mismatch) is never silently served:
// it is discarded, the corruption is reported through the cache.corrupt
// hook and logged, and the value is recomputed.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint string, ttl time.Duration, compute func() (StaticSections, error)) (StaticSections, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[fingerprint]
	c.mu.RUnlock()

	if ok && c.now().Sub(e.createdAt) < e.ttl {
		if checksum(e.value) == e.sum {
			c.hits.Add(1)
			return e.value, true, nil
		}
		c.reportCorruption(ctx, fingerprint)
		c.Invalidate(fingerprint)
	}

	c.misses.Add(1)

	value, err := compute()
	if err != nil {
		return StaticSections{}, false, err
	}

	c.mu.Lock()
	c.entries[fingerprint] = cacheEntry{
		value:     value,
		createdAt: c.now(),
		ttl:       ttl,
		sum:       checksum(value),
	}
	c.mu.Unlock()

	return value, false, nil
}

// Invalidate clears the entry for one fingerprint.
func (c *Cache) Invalidate(fingerprint string) {
	c.mu.Lock()
	delete(c.entries, fingerprint)
	c.mu.Unlock()
}

// InvalidateAll clears every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// SweepExpired removes entries past their TTL and returns how many were
// removed. Run periodically by the janitor job.
func (c *Cache) SweepExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for fp, e := range c.entries {
		if now.Sub(e.createdAt) >= e.ttl {
			delete(c.entries, fp)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	return CacheStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Corruptions: c.corruptions.Load(),
		Entries:     entries,
	}
}

func (c *Cache) reportCorruption(ctx context.Context, fingerprint string) {
	c.corruptions.Add(1)
	err := fmt.Errorf("%w: fingerprint %s", ErrCacheCorrupted, fingerprint)
	c.logger.Error("ctxengine: discarding corrupted cache entry", "error", err)
	if c.hooks != nil {
		if herr := c.hooks.Trigger(ctx, hook.EventCacheCorrupt, hook.Payload{
			"fingerprint": fingerprint,
		}); herr != nil {
			c.logger.Warn("ctxengine: cache corruption hook errors", "error", herr)
		}
	}
}
