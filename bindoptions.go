package encore

import (
	"time"

	"golang.org/x/sync/singleflight"
)

// BindOption configures a Binding or BindingSet.
type BindOption interface {
	applyBind(*bindOptions)
}

// bindOptions holds per-binding configuration.
type bindOptions struct {
	ttl                  time.Duration
	refreshInterval      time.Duration
	staleWhileRevalidate bool
	onError              func(error)
	flight               *singleflight.Group
}

// defaultBindOptions returns the default binding configuration.
func defaultBindOptions() bindOptions {
	return bindOptions{
		ttl: 5 * time.Minute,
	}
}

// bindOptionFunc wraps a function to implement BindOption.
type bindOptionFunc func(*bindOptions)

// Compile-time check that bindOptionFunc implements BindOption.
var _ BindOption = bindOptionFunc(nil)

func (f bindOptionFunc) applyBind(o *bindOptions) { f(o) }

// WithTTL sets the lifetime of cache entries written by the binding.
// Default is 5 minutes.
func WithTTL(ttl time.Duration) BindOption {
	return bindOptionFunc(func(o *bindOptions) {
		o.ttl = ttl
	})
}

// WithRefreshInterval enables periodic background staleness checks at the
// given cadence. On each tick the binding refetches if its cache entry has
// expired. Zero (the default) disables the checks.
func WithRefreshInterval(interval time.Duration) BindOption {
	return bindOptionFunc(func(o *bindOptions) {
		o.refreshInterval = interval
	})
}

// WithStaleWhileRevalidate keeps previously fetched data visible while a
// background refetch is in flight, marking the state stale instead of
// clearing it to a loading state.
func WithStaleWhileRevalidate(enabled bool) BindOption {
	return bindOptionFunc(func(o *bindOptions) {
		o.staleWhileRevalidate = enabled
	})
}

// WithOnError registers a side-effect callback invoked on every fetch
// failure, independent of the error surfaced in the query state. Useful for
// logging or telemetry.
func WithOnError(fn func(error)) BindOption {
	return bindOptionFunc(func(o *bindOptions) {
		o.onError = fn
	})
}

// WithFlightGroup deduplicates concurrent fetches for the same key across
// bindings sharing the group. Without it, independent bindings bound to one
// key may each trigger their own fetch.
func WithFlightGroup(g *singleflight.Group) BindOption {
	return bindOptionFunc(func(o *bindOptions) {
		o.flight = g
	})
}
