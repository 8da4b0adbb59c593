package encore

import (
	"errors"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T, capacity int, clock *fakeClock) *Cache[string] {
	t.Helper()
	c, err := New[string](capacity, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := New[string](capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("New(%d) error = %v, want ErrInvalidCapacity", capacity, err)
		}
	}
}

func TestCache_GetSet(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() should return false for missing key")
	}

	c.Set("api:songs", "payload", time.Minute)
	v, ok := c.Get("api:songs")
	if !ok {
		t.Fatal("Get() should return true after Set")
	}
	if v != "payload" {
		t.Errorf("Get() = %q, want %q", v, "payload")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, 10, clock)

	c.Set("api:songs", "payload", time.Minute)
	clock.Advance(time.Minute + time.Second)

	before := c.Stats()
	if _, ok := c.Get("api:songs"); ok {
		t.Error("Get() should miss after TTL elapsed")
	}
	after := c.Stats()

	if got := after.Misses - before.Misses; got != 1 {
		t.Errorf("miss counter increased by %d, want 1", got)
	}
	if c.Has("api:songs") {
		t.Error("Has() should be false after an expired read")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 (expired entry removed)", c.Len())
	}
}

func TestCache_TTLBoundaryIsLive(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, 10, clock)

	// An entry is live while now - storedAt <= ttl, inclusive.
	c.Set("k", "v", time.Minute)
	clock.Advance(time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Error("Get() at exactly storedAt+ttl should hit")
	}
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, 10, clock)

	c.Set("pinned", "v", 0)
	clock.Advance(24 * 365 * time.Hour)
	if _, ok := c.Get("pinned"); !ok {
		t.Error("entry with zero TTL should never expire")
	}
}

func TestCache_LRUEvictionOrder(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, 2, clock)

	c.Set("a", "1", time.Hour)
	clock.Advance(time.Second)
	c.Set("b", "2", time.Hour)
	clock.Advance(time.Second)

	// Reading a refreshes its recency, so b becomes the LRU victim.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Get(a) should hit")
	}
	clock.Advance(time.Second)
	c.Set("c", "3", time.Hour)

	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
	if c.Has("b") {
		t.Error("b should have been evicted")
	}
	if !c.Has("a") || !c.Has("c") {
		t.Error("a and c should survive")
	}
}

func TestCache_SetSweepsExpiredBeforeEvicting(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, 2, clock)

	c.Set("a", "1", time.Minute)
	c.Set("b", "2", time.Minute)
	clock.Advance(2 * time.Minute)

	// Both entries are expired: the sweep makes room, so inserting at
	// capacity must not count an eviction.
	c.Set("c", "3", time.Minute)

	if got := c.Stats().Evictions; got != 0 {
		t.Errorf("Evictions = %d, want 0 (sweep made room)", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCache_OverwriteResetsMetadata(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, 10, clock)

	c.Set("k", "v1", time.Minute)
	c.Get("k")
	c.Get("k")

	clock.Advance(30 * time.Second)
	c.Set("k", "v2", time.Minute)

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	v, ok := c.Get("k")
	if !ok || v != "v2" {
		t.Errorf("Get() = %q, %v, want %q, true", v, ok, "v2")
	}

	c.mu.Lock()
	e, _ := c.entries.Peek("k")
	c.mu.Unlock()
	// One read after the overwrite; the pre-overwrite accesses are gone.
	if e.accessCount != 1 {
		t.Errorf("accessCount = %d, want 1 (reset by overwrite)", e.accessCount)
	}
	if !e.storedAt.Equal(clock.Now()) {
		t.Errorf("storedAt = %v, want %v (refreshed by overwrite)", e.storedAt, clock.Now())
	}
}

func TestCache_OverwriteAtCapacityDoesNotEvict(t *testing.T) {
	c := newTestCache(t, 2, newFakeClock())

	c.Set("a", "1", time.Hour)
	c.Set("b", "2", time.Hour)
	c.Set("a", "1b", time.Hour)

	if got := c.Stats().Evictions; got != 0 {
		t.Errorf("Evictions = %d, want 0 (overwrite does not grow the store)", got)
	}
	if !c.Has("a") || !c.Has("b") {
		t.Error("both entries should survive an overwrite at capacity")
	}
}

func TestCache_HitRate(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())

	if got := c.Stats().HitRate; got != 0 {
		t.Errorf("fresh HitRate = %v, want 0", got)
	}

	c.Set("k", "v", time.Hour)
	c.Get("k")
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 3 || s.Misses != 1 || s.TotalRequests != 4 {
		t.Fatalf("Stats() = %+v, want 3 hits, 1 miss, 4 requests", s)
	}
	if s.HitRate != 75.00 {
		t.Errorf("HitRate = %v, want 75.00", s.HitRate)
	}
}

func TestCache_HitRateRounding(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())

	c.Set("k", "v", time.Hour)
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	// 2/3 = 66.666...%, rounded to two decimals.
	if got := c.Stats().HitRate; got != 66.67 {
		t.Errorf("HitRate = %v, want 66.67", got)
	}
}

func TestCache_HasNoStatsEffect(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, 10, clock)

	c.Set("k", "v", time.Minute)
	c.Has("k")
	c.Has("missing")
	clock.Advance(2 * time.Minute)
	c.Has("k") // expired: removed, still no counters

	s := c.Stats()
	if s.Hits != 0 || s.Misses != 0 || s.TotalRequests != 0 {
		t.Errorf("Stats() = %+v, want zero hits/misses/requests after Has calls", s)
	}
}

func TestCache_Delete(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())

	c.Set("k", "v", time.Hour)
	if !c.Delete("k") {
		t.Error("Delete() should report true for an existing key")
	}
	if c.Delete("k") {
		t.Error("Delete() should report false for a missing key")
	}
}

func TestCache_ClearResetsStats(t *testing.T) {
	c := newTestCache(t, 2, newFakeClock())

	c.Set("a", "1", time.Hour)
	c.Set("b", "2", time.Hour)
	c.Set("c", "3", time.Hour) // eviction
	c.Get("c")
	c.Get("missing")

	c.Clear()

	s := c.Stats()
	if s.Hits != 0 || s.Misses != 0 || s.Evictions != 0 || s.TotalRequests != 0 || s.Size != 0 {
		t.Errorf("Stats() after Clear = %+v, want all zero", s)
	}
}

func TestCache_InvalidatePattern(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())

	c.Set("api:songs", "1", time.Hour)
	c.Set("api:shows", "2", time.Hour)
	c.Set("query:songs:{}", "3", time.Hour)

	removed, err := c.InvalidatePattern("^api:")
	if err != nil {
		t.Fatalf("InvalidatePattern() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("InvalidatePattern() = %d, want 2", removed)
	}
	if c.Has("api:songs") || c.Has("api:shows") {
		t.Error("api:-prefixed keys should be gone")
	}
	if !c.Has("query:songs:{}") {
		t.Error("query key should survive")
	}
}

func TestCache_InvalidatePattern_BadPattern(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())
	if _, err := c.InvalidatePattern("("); err == nil {
		t.Error("InvalidatePattern() expected error for invalid pattern")
	}
}

func TestCache_CapacityInvariant(t *testing.T) {
	c := newTestCache(t, 3, newFakeClock())

	for _, key := range []string{"a", "b", "c", "d", "e", "f", "a", "b"} {
		c.Set(key, "v", time.Hour)
		if got := c.Len(); got > 3 {
			t.Fatalf("Len() = %d after Set(%q), capacity invariant violated", got, key)
		}
	}
}
