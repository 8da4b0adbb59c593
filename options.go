package encore

import (
	"time"

	"go.uber.org/zap"

	"github.com/phansite/encore/internal/measure"
	"github.com/phansite/encore/internal/stats"
)

// Option configures a Cache.
type Option interface {
	apply(*options)
}

// options holds the cache configuration.
type options struct {
	logger    *zap.Logger
	collector stats.Collector
	now       func() time.Time
	slowAfter time.Duration
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		logger:    zap.NewNop(),
		collector: stats.NewNoop(),
		now:       time.Now,
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithCollector sets the stats collector.
// If not set, a no-op collector is used.
func WithCollector(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.collector = c
	})
}

// WithClock sets the time source used for TTL and recency bookkeeping.
// Intended for tests; defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		o.now = now
	})
}

// WithSlowWarn enables slow-operation tracking for fetches and derived
// computations served through this cache. Operations taking longer than
// threshold are logged at warn level; all operation durations feed the
// duration histogram. A non-positive threshold uses the package default.
func WithSlowWarn(threshold time.Duration) Option {
	return optionFunc(func(o *options) {
		o.slowAfter = threshold
		if o.slowAfter <= 0 {
			o.slowAfter = measure.DefaultSlowAfter
		}
	})
}
