package encore

import (
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/phansite/encore/internal/measure"
	"github.com/phansite/encore/internal/querykey"
	"github.com/phansite/encore/internal/stats"
)

// ComputeFunc is a pure synchronous computation over a parameter set, e.g.
// one filter+sort pass over an in-memory collection.
type ComputeFunc[P, T any] func(params P) T

// Memo caches the results of a named synchronous computation, keyed by a
// canonical serialization of its parameters. Identical parameter
// combinations reuse the cached result; distinct combinations get distinct
// entries.
//
// Compute functions are assumed pure and panic-free over well-formed inputs;
// Memo does not recover panics, they propagate to the caller.
type Memo[P, T any] struct {
	cache   *Cache[T]
	name    string
	ttl     time.Duration
	compute ComputeFunc[P, T]
}

// NewMemo binds compute to the cache under the given query name. Results are
// stored with the given ttl.
func NewMemo[P, T any](cache *Cache[T], name string, ttl time.Duration, compute ComputeFunc[P, T]) *Memo[P, T] {
	return &Memo[P, T]{
		cache:   cache,
		name:    name,
		ttl:     ttl,
		compute: compute,
	}
}

// Get returns the cached result for params, computing and storing it on a
// miss. Parameters that cannot be canonicalized (a programming defect, e.g.
// a channel field) bypass the cache entirely: the computation still runs,
// its result is just not retained.
func (m *Memo[P, T]) Get(params P) T {
	key, err := querykey.Build(m.name, params)
	if err != nil {
		m.cache.logger.Warn("uncacheable query params",
			zap.String("query", m.name),
			zap.Error(err),
		)
		return m.run(params)
	}

	if v, ok := m.cache.Get(key); ok {
		return v
	}

	v := m.run(params)
	m.cache.Set(key, v, m.ttl)
	return v
}

// Key returns the canonical cache key Get would use for params.
func (m *Memo[P, T]) Key(params P) (string, error) {
	return querykey.Build(m.name, params)
}

// Invalidate removes every cached result of this query, across all
// parameter combinations.
func (m *Memo[P, T]) Invalidate() int {
	n, err := m.cache.InvalidatePattern("^" + regexp.QuoteMeta(m.name) + ":")
	if err != nil {
		// The quoted name always compiles; keep the signature simple.
		return 0
	}
	return n
}

func (m *Memo[P, T]) run(params P) T {
	m.cache.collector.IncCounter(stats.MetricComputes, 1)
	return measure.Sync(m.cache.monitor, "derive:"+m.name, func() T {
		return m.compute(params)
	})
}
