package encore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/phansite/encore/internal/measure"
	"github.com/phansite/encore/internal/stats"
)

// FetchFunc loads the value for a bound resource. It is supplied by the
// consumer and may be arbitrarily slow; the binding never calls it while
// another fetch for the same binding is in flight.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// QueryState is the consumer-facing view of a bound resource.
type QueryState[T any] struct {
	// Data is the most recently resolved value. Valid only when HasData
	// is true. It survives fetch failures so consumers can keep showing
	// stale content next to an error indicator.
	Data    T
	HasData bool

	// Loading is true while a fetch is in flight and no usable data
	// decision has been made for it yet.
	Loading bool

	// Err holds the most recent fetch failure, cleared on success.
	Err error

	// LastUpdated is the time Data last changed.
	LastUpdated time.Time

	// Stale is true when Data is being shown while a background refresh
	// is pending or in flight.
	Stale bool
}

// Binding gives one consumer a stable loading/error/data view of a single
// cached resource. State transitions are strictly ordered per binding: at
// most one fetch is in flight at a time, and a Refresh during an in-flight
// fetch is ignored. Independent bindings on the same key may fetch
// concurrently unless they share a flight group (WithFlightGroup).
type Binding[T any] struct {
	cache *Cache[T]
	key   string
	fetch FetchFunc[T]
	opts  bindOptions

	mu       sync.Mutex
	state    QueryState[T]
	inflight bool
	closed   bool
	subs     map[int]func(QueryState[T])
	nextSub  int

	stop     chan struct{}
	stopOnce sync.Once
}

// Bind attaches a consumer to key. If the cache already holds a live value
// the binding starts Ready with it and no fetch happens; otherwise a fetch
// starts immediately in the background. ctx governs the initial fetch and
// any background refreshes; cancel it or call Close to detach.
func Bind[T any](ctx context.Context, cache *Cache[T], key string, fetch FetchFunc[T], opts ...BindOption) *Binding[T] {
	cfg := defaultBindOptions()
	for _, opt := range opts {
		opt.applyBind(&cfg)
	}

	b := &Binding[T]{
		cache: cache,
		key:   key,
		fetch: fetch,
		opts:  cfg,
		subs:  make(map[int]func(QueryState[T])),
		stop:  make(chan struct{}),
	}

	if v, ok := cache.Get(key); ok {
		b.state = QueryState[T]{
			Data:        v,
			HasData:     true,
			LastUpdated: cache.now(),
		}
	} else {
		b.startFetch(ctx, false)
	}

	if cfg.refreshInterval > 0 {
		go b.autoRefresh(ctx)
	}

	return b
}

// Snapshot returns the current query state.
func (b *Binding[T]) Snapshot() QueryState[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Key returns the cache key this binding is attached to.
func (b *Binding[T]) Key() string {
	return b.key
}

// Subscribe registers fn to be called with the current state immediately and
// again after every state transition. The returned cancel function removes
// the subscription.
func (b *Binding[T]) Subscribe(fn func(QueryState[T])) (cancel func()) {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	current := b.state
	b.mu.Unlock()

	fn(current)

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Refresh forces a fetch, bypassing the cache read but still writing the
// fresh result into the cache. If a fetch is already in flight the call is
// ignored; the in-flight result wins.
func (b *Binding[T]) Refresh(ctx context.Context) {
	b.startFetch(ctx, false)
}

// Invalidate deletes the cache entry and marks the state stale without
// triggering a fetch. The next natural access path decides whether to
// refetch.
func (b *Binding[T]) Invalidate() {
	b.cache.Delete(b.key)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.state.Stale = true
	snap := b.state
	subs := b.subscribers()
	b.mu.Unlock()

	notify(subs, snap)
}

// Close detaches the consumer. Any in-flight fetch still runs to completion
// and still populates the shared cache, but it no longer touches this
// binding's state or callbacks. Close is idempotent.
func (b *Binding[T]) Close() {
	b.stopOnce.Do(func() {
		close(b.stop)
	})

	b.mu.Lock()
	b.closed = true
	b.subs = make(map[int]func(QueryState[T]))
	b.mu.Unlock()
}

// autoRefresh runs the periodic staleness check until the binding closes or
// ctx is cancelled.
func (b *Binding[T]) autoRefresh(ctx context.Context) {
	ticker := time.NewTicker(b.opts.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.pollOnce(ctx)
		}
	}
}

// pollOnce performs one staleness check: if the cache entry has expired,
// refetch in the background. With staleWhileRevalidate the current data
// stays visible and the state is marked stale; otherwise the state clears
// to loading.
func (b *Binding[T]) pollOnce(ctx context.Context) {
	if b.cache.Has(b.key) {
		return
	}

	if b.opts.staleWhileRevalidate {
		b.mu.Lock()
		if b.closed || b.inflight {
			b.mu.Unlock()
			return
		}
		b.state.Stale = true
		snap := b.state
		subs := b.subscribers()
		b.mu.Unlock()

		notify(subs, snap)
		b.startFetch(ctx, false)
		return
	}
	b.startFetch(ctx, true)
}

// startFetch transitions to Loading and launches the fetch, unless the
// binding is closed or a fetch is already in flight. When clear is true the
// currently displayed data is dropped first.
func (b *Binding[T]) startFetch(ctx context.Context, clear bool) {
	b.mu.Lock()
	if b.closed || b.inflight {
		b.mu.Unlock()
		return
	}
	b.inflight = true
	b.state.Loading = true
	if clear {
		var zero T
		b.state.Data = zero
		b.state.HasData = false
	}
	snap := b.state
	subs := b.subscribers()
	b.mu.Unlock()

	notify(subs, snap)
	go b.doFetch(ctx)
}

// doFetch runs the fetch and applies the result.
func (b *Binding[T]) doFetch(ctx context.Context) {
	value, err := b.runFetch(ctx)

	if err == nil {
		// The shared cache benefits from the result even if this
		// consumer detached while the fetch was running.
		b.cache.Set(b.key, value, b.opts.ttl)
	}

	b.mu.Lock()
	b.inflight = false
	if b.closed {
		b.mu.Unlock()
		return
	}

	if err != nil {
		b.cache.logger.Warn("fetch failed",
			zap.String("key", b.key),
			zap.Error(err),
		)
		b.state.Loading = false
		b.state.Err = err
		snap := b.state
		subs := b.subscribers()
		onError := b.opts.onError
		b.mu.Unlock()

		if onError != nil {
			onError(err)
		}
		notify(subs, snap)
		return
	}

	b.state = QueryState[T]{
		Data:        value,
		HasData:     true,
		LastUpdated: b.cache.now(),
	}
	snap := b.state
	subs := b.subscribers()
	b.mu.Unlock()

	notify(subs, snap)
}

// runFetch invokes the user fetcher, deduplicating through the flight group
// when one is configured and recording duration when the cache tracks slow
// operations.
func (b *Binding[T]) runFetch(ctx context.Context) (T, error) {
	b.cache.collector.IncCounter(stats.MetricFetches, 1)

	fetch := func(ctx context.Context) (T, error) {
		return b.fetch(ctx)
	}
	if b.opts.flight != nil {
		inner := fetch
		fetch = func(ctx context.Context) (T, error) {
			v, err, _ := b.opts.flight.Do(b.key, func() (any, error) {
				return inner(ctx)
			})
			if err != nil {
				var zero T
				return zero, err
			}
			return v.(T), nil
		}
	}

	value, err := measure.Async(ctx, b.cache.monitor, "fetch:"+b.key, fetch)
	if err != nil {
		b.cache.collector.IncCounter(stats.MetricFetchFailures, 1)
	}
	return value, err
}

// subscribers snapshots the subscriber list. Callers must hold b.mu.
func (b *Binding[T]) subscribers() []func(QueryState[T]) {
	out := make([]func(QueryState[T]), 0, len(b.subs))
	for _, fn := range b.subs {
		out = append(out, fn)
	}
	return out
}

func notify[T any](subs []func(QueryState[T]), state QueryState[T]) {
	for _, fn := range subs {
		fn(state)
	}
}
