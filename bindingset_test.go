package encore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func testResources(failing string, calls *atomic.Int64) []Resource[string] {
	make1 := func(key, value string) Resource[string] {
		return Resource[string]{
			Key: key,
			Fetch: func(ctx context.Context) (string, error) {
				if calls != nil {
					calls.Add(1)
				}
				if key == failing {
					return "", errors.New("fetch failed: " + key)
				}
				return value, nil
			},
		}
	}
	return []Resource[string]{
		make1("api:songs", "songs-data"),
		make1("api:shows", "shows-data"),
		make1("api:venues", "venues-data"),
	}
}

func TestBindSet_ErrorIsolation(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())

	set, err := BindSet(context.Background(), c, testResources("api:shows", nil))
	if err != nil {
		t.Fatalf("BindSet() error = %v", err)
	}
	defer set.Close()

	waitFor(t, "all resources to settle", func() bool {
		st := set.Snapshot()
		return !st.Loading && len(st.Data)+len(st.Errors) == 3
	})

	st := set.Snapshot()
	if len(st.Data) != 2 {
		t.Errorf("Data has %d entries, want 2", len(st.Data))
	}
	if st.Data["api:songs"] != "songs-data" || st.Data["api:venues"] != "venues-data" {
		t.Errorf("Data = %+v, want the two healthy resources", st.Data)
	}
	if len(st.Errors) != 1 {
		t.Fatalf("Errors has %d entries, want 1", len(st.Errors))
	}
	if _, ok := st.Errors["api:shows"]; !ok {
		t.Errorf("Errors = %+v, want entry for the failing resource", st.Errors)
	}
}

func TestBindSet_DuplicateKey(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())

	resources := testResources("", nil)
	resources = append(resources, resources[0])

	if _, err := BindSet(context.Background(), c, resources); !errors.Is(err, ErrDuplicateResource) {
		t.Errorf("BindSet() error = %v, want ErrDuplicateResource", err)
	}
}

func TestBindSet_RefreshAll(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())

	var calls atomic.Int64
	set, err := BindSet(context.Background(), c, testResources("", &calls))
	if err != nil {
		t.Fatalf("BindSet() error = %v", err)
	}
	defer set.Close()

	waitFor(t, "initial fetches", func() bool { return len(set.Snapshot().Data) == 3 })
	if calls.Load() != 3 {
		t.Fatalf("fetch calls = %d, want 3", calls.Load())
	}

	if err := set.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	waitFor(t, "refresh fan-out", func() bool { return calls.Load() == 6 })
}

func TestBindSet_RefreshOne(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())

	var calls atomic.Int64
	set, err := BindSet(context.Background(), c, testResources("", &calls))
	if err != nil {
		t.Fatalf("BindSet() error = %v", err)
	}
	defer set.Close()

	waitFor(t, "initial fetches", func() bool { return len(set.Snapshot().Data) == 3 })

	if err := set.Refresh(context.Background(), "api:songs"); err != nil {
		t.Fatalf("Refresh(api:songs) error = %v", err)
	}
	waitFor(t, "single refresh", func() bool { return calls.Load() == 4 })
}

func TestBindSet_RefreshUnknownKey(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())

	set, err := BindSet(context.Background(), c, testResources("", nil))
	if err != nil {
		t.Fatalf("BindSet() error = %v", err)
	}
	defer set.Close()

	if err := set.Refresh(context.Background(), "api:nope"); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("Refresh() error = %v, want ErrUnknownResource", err)
	}
}

func TestBindSet_InvalidateOne(t *testing.T) {
	c := newTestCache(t, 10, newFakeClock())

	set, err := BindSet(context.Background(), c, testResources("", nil))
	if err != nil {
		t.Fatalf("BindSet() error = %v", err)
	}
	defer set.Close()

	waitFor(t, "initial fetches", func() bool { return len(set.Snapshot().Data) == 3 })

	if err := set.Invalidate("api:shows"); err != nil {
		t.Fatalf("Invalidate(api:shows) error = %v", err)
	}

	if c.Has("api:shows") {
		t.Error("invalidated entry should be gone from the cache")
	}
	if !c.Has("api:songs") || !c.Has("api:venues") {
		t.Error("sibling entries must survive a single-key invalidation")
	}

	st := set.Snapshot()
	if !st.Stale["api:shows"] {
		t.Errorf("Stale = %+v, want api:shows marked", st.Stale)
	}
	if st.Stale["api:songs"] || st.Stale["api:venues"] {
		t.Errorf("Stale = %+v, want siblings unmarked", st.Stale)
	}
}

func TestBindSet_PerResourceOptions(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, 10, clock)

	resources := []Resource[string]{
		{
			Key:     "api:songs",
			Fetch:   constFetch("songs", nil),
			Options: []BindOption{WithTTL(time.Minute)},
		},
		{
			Key:   "api:shows",
			Fetch: constFetch("shows", nil),
		},
	}

	set, err := BindSet(context.Background(), c, resources, WithTTL(time.Hour))
	if err != nil {
		t.Fatalf("BindSet() error = %v", err)
	}
	defer set.Close()

	waitFor(t, "initial fetches", func() bool { return len(set.Snapshot().Data) == 2 })

	// The per-resource TTL overrides the set-wide one.
	clock.Advance(2 * time.Minute)
	if c.Has("api:songs") {
		t.Error("api:songs should have expired under its one-minute TTL")
	}
	if !c.Has("api:shows") {
		t.Error("api:shows should still be live under the set-wide TTL")
	}
}
