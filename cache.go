// Package encore provides an in-process TTL/LRU cache and a cached-access
// layer for expensive or rate-limited fetches and derived computations.
//
// Example usage:
//
//	cache, err := encore.New[[]byte](100,
//	    encore.WithLogger(log),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	songs := encore.Bind(ctx, cache, "api:songs", fetchSongs,
//	    encore.WithTTL(10*time.Minute),
//	)
//	defer songs.Close()
//
//	state := songs.Snapshot()
//	if state.HasData {
//	    render(state.Data)
//	}
package encore

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"

	"github.com/phansite/encore/internal/measure"
	"github.com/phansite/encore/internal/stats"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrInvalidCapacity indicates a non-positive cache capacity.
	ErrInvalidCapacity = errors.New("encore: capacity must be positive")

	// ErrDuplicateResource indicates two resources in one set share a key.
	ErrDuplicateResource = errors.New("encore: duplicate resource key")

	// ErrUnknownResource indicates a set operation named a key that was
	// never configured.
	ErrUnknownResource = errors.New("encore: unknown resource key")
)

// entry is a cached value plus its expiration and recency metadata.
type entry[V any] struct {
	value        V
	storedAt     time.Time
	ttl          time.Duration
	accessCount  int64
	lastAccessed time.Time
}

// live reports whether the entry is within its TTL at the given time.
// A non-positive TTL pins the entry; it never expires.
func (e *entry[V]) live(now time.Time) bool {
	if e.ttl <= 0 {
		return true
	}
	return now.Sub(e.storedAt) <= e.ttl
}

// Cache is a capacity-bounded key/value store with per-entry TTL and LRU
// eviction. One Cache is constructed per logical namespace (raw fetch
// payloads, derived query results) and lives for the process lifetime.
//
// Expiration is lazy: expired entries are swept on every write and removed
// on the read path when encountered. There is no background janitor.
//
// A Cache is safe for concurrent use by multiple goroutines.
type Cache[V any] struct {
	mu       sync.Mutex
	entries  *simplelru.LRU[string, *entry[V]]
	capacity int

	hits          int64
	misses        int64
	evictions     int64
	totalRequests int64

	now       func() time.Time
	logger    *zap.Logger
	collector stats.Collector
	monitor   *measure.Monitor
}

// New creates a Cache holding at most capacity live entries.
func New[V any](capacity int, opts ...Option) (*Cache[V], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	// Recency order is tracked by the simplelru access list; capacity and
	// eviction accounting stay here, so the inner LRU must never self-evict.
	inner, err := simplelru.NewLRU[string, *entry[V]](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}

	c := &Cache[V]{
		entries:   inner,
		capacity:  capacity,
		now:       cfg.now,
		logger:    cfg.logger,
		collector: cfg.collector,
	}
	if cfg.slowAfter > 0 {
		c.monitor = measure.New(cfg.logger, cfg.collector, cfg.slowAfter)
	}

	c.logger.Debug("cache initialized", zap.Int("capacity", capacity))
	return c, nil
}

// Set stores value under key with the given ttl, overwriting any existing
// entry and resetting its metadata. Expired entries across the whole store
// are swept first; if the insert would then grow the store past capacity,
// the least recently used entry is evicted.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)

	if !c.entries.Contains(key) && c.entries.Len() >= c.capacity {
		if victim, _, ok := c.entries.RemoveOldest(); ok {
			c.evictions++
			c.collector.IncCounter(stats.MetricEvictions, 1)
			c.logger.Debug("evicted entry",
				zap.String("key", victim),
				zap.String("inserted", key),
			)
		}
	}

	c.entries.Add(key, &entry[V]{
		value:        value,
		storedAt:     now,
		ttl:          ttl,
		lastAccessed: now,
	})
	c.collector.SetGauge(stats.MetricSize, int64(c.entries.Len()))
}

// Get returns the live value stored under key. An expired entry behaves
// exactly like an absent one and is removed as a side effect. This is the
// only read path that affects hit/miss statistics.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	now := c.now()

	if e, ok := c.entries.Peek(key); ok {
		if e.live(now) {
			c.entries.Get(key) // refresh recency
			e.accessCount++
			e.lastAccessed = now
			c.hits++
			c.collector.IncCounter(stats.MetricHits, 1)
			return e.value, true
		}
		c.removeLocked(key)
		c.collector.IncCounter(stats.MetricExpired, 1)
	}

	c.misses++
	c.collector.IncCounter(stats.MetricMisses, 1)
	var zero V
	return zero, false
}

// Has reports whether a live entry exists under key. An expired entry is
// removed as a side effect, but hit/miss counters are not touched.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(key)
	if !ok {
		return false
	}
	if !e.live(c.now()) {
		c.removeLocked(key)
		c.collector.IncCounter(stats.MetricExpired, 1)
		return false
	}
	return true
}

// Delete removes the entry under key and reports whether one existed.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(key)
}

// Clear empties the store and resets all statistics counters. This is the
// only path that resets statistics.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
	c.totalRequests = 0
	c.collector.SetGauge(stats.MetricSize, 0)
}

// InvalidatePattern removes every key matching the regular expression and
// returns the number of entries removed. Used for coarse invalidation when
// an upstream dataset changes, e.g. InvalidatePattern("^api:").
func (c *Cache[V]) InvalidatePattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("compiling pattern: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for _, key := range c.entries.Keys() {
		if re.MatchString(key) {
			c.entries.Remove(key)
			removed++
		}
	}
	if removed > 0 {
		c.collector.SetGauge(stats.MetricSize, int64(c.entries.Len()))
		c.logger.Debug("invalidated by pattern",
			zap.String("pattern", pattern),
			zap.Int("removed", removed),
		)
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Stats returns a snapshot of the cache statistics.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		TotalRequests: c.totalRequests,
		Size:          c.entries.Len(),
	}
	if c.totalRequests > 0 {
		rate := float64(c.hits) / float64(c.totalRequests) * 100
		s.HitRate = math.Round(rate*100) / 100
	}
	return s
}

// sweepLocked removes every expired entry. Callers must hold c.mu.
func (c *Cache[V]) sweepLocked(now time.Time) {
	var swept int64
	for _, key := range c.entries.Keys() {
		if e, ok := c.entries.Peek(key); ok && !e.live(now) {
			c.entries.Remove(key)
			swept++
		}
	}
	if swept > 0 {
		c.collector.IncCounter(stats.MetricExpired, swept)
	}
}

// removeLocked removes key and updates the size gauge. Callers must hold c.mu.
func (c *Cache[V]) removeLocked(key string) bool {
	ok := c.entries.Remove(key)
	if ok {
		c.collector.SetGauge(stats.MetricSize, int64(c.entries.Len()))
	}
	return ok
}

// Stats contains cumulative cache statistics. Counters are monotonically
// non-decreasing for the cache lifetime and reset only by Clear.
type Stats struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	TotalRequests int64
	Size          int

	// HitRate is Hits/TotalRequests as a percentage, rounded to two
	// decimal places. Zero when no requests have been made.
	HitRate float64
}
