// Package stats provides a unified interface for collecting cache metrics.
package stats

// Metric names used throughout the library.
const (
	// Cache engine metrics.
	MetricHits      = "encore_cache_hits_total"
	MetricMisses    = "encore_cache_misses_total"
	MetricEvictions = "encore_cache_evictions_total"
	MetricExpired   = "encore_cache_expired_total"
	MetricSize      = "encore_cache_size"

	// Orchestrator metrics.
	MetricFetches       = "encore_fetches_total"
	MetricFetchFailures = "encore_fetch_failures_total"
	MetricComputes      = "encore_computes_total"
	MetricOpDuration    = "encore_op_duration_seconds"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
