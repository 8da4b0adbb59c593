// Package measure times cache operations and flags slow ones.
//
// Synchronous and asynchronous operations go through separate entry points
// chosen by the caller; there is no runtime inspection of what a function
// returns.
package measure

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/phansite/encore/internal/stats"
)

// DefaultSlowAfter is the threshold past which an operation is logged as slow
// when no explicit threshold is configured.
const DefaultSlowAfter = 500 * time.Millisecond

// Monitor records operation durations and warns about slow operations.
// A nil *Monitor is valid and disables all measurement.
type Monitor struct {
	logger    *zap.Logger
	collector stats.Collector
	slowAfter time.Duration
}

// New creates a Monitor. A nil logger or collector falls back to no-op
// implementations; a non-positive slowAfter falls back to DefaultSlowAfter.
func New(logger *zap.Logger, collector stats.Collector, slowAfter time.Duration) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector == nil {
		collector = stats.NewNoop()
	}
	if slowAfter <= 0 {
		slowAfter = DefaultSlowAfter
	}
	return &Monitor{logger: logger, collector: collector, slowAfter: slowAfter}
}

// observe records one finished operation.
func (m *Monitor) observe(op string, elapsed time.Duration) {
	m.collector.ObserveHistogram(stats.MetricOpDuration, elapsed.Seconds())
	if elapsed >= m.slowAfter {
		m.logger.Warn("slow operation",
			zap.String("op", op),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", m.slowAfter),
		)
	}
}

// Sync runs a synchronous computation and records its duration.
func Sync[T any](m *Monitor, op string, fn func() T) T {
	if m == nil {
		return fn()
	}
	start := time.Now()
	v := fn()
	m.observe(op, time.Since(start))
	return v
}

// Async runs a context-aware operation and records its duration. The duration
// is recorded whether or not the operation fails.
func Async[T any](ctx context.Context, m *Monitor, op string, fn func(context.Context) (T, error)) (T, error) {
	if m == nil {
		return fn(ctx)
	}
	start := time.Now()
	v, err := fn(ctx)
	m.observe(op, time.Since(start))
	return v, err
}
