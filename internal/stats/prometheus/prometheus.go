// Package prometheus provides a Prometheus-based stats collector.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phansite/encore/internal/stats"
)

// Collector implements stats.Collector using Prometheus metrics.
// Metrics are created and registered lazily on first use, so callers do not
// need to declare metric names up front.
type Collector struct {
	registry prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// New creates a new Prometheus collector.
// If registry is nil, prometheus.DefaultRegisterer is used.
func New(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Collector{
		registry:   registry,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// IncCounter increments a counter metric.
func (c *Collector) IncCounter(name string, delta int64) {
	c.counter(name).Add(float64(delta))
}

// SetGauge sets a gauge metric.
func (c *Collector) SetGauge(name string, value int64) {
	c.gauge(name).Set(float64(value))
}

// ObserveHistogram records a value in a histogram.
func (c *Collector) ObserveHistogram(name string, value float64) {
	c.histogram(name).Observe(value)
}

func (c *Collector) counter(name string) prometheus.Counter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, ok := c.counters[name]; ok {
		return counter
	}
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: name})
	if existing, ok := register(c.registry, counter); ok {
		if prev, ok := existing.(prometheus.Counter); ok {
			counter = prev
		}
	}
	c.counters[name] = counter
	return counter
}

func (c *Collector) gauge(name string) prometheus.Gauge {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gauge, ok := c.gauges[name]; ok {
		return gauge
	}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: name})
	if existing, ok := register(c.registry, gauge); ok {
		if prev, ok := existing.(prometheus.Gauge); ok {
			gauge = prev
		}
	}
	c.gauges[name] = gauge
	return gauge
}

func (c *Collector) histogram(name string) prometheus.Histogram {
	c.mu.Lock()
	defer c.mu.Unlock()

	if histogram, ok := c.histograms[name]; ok {
		return histogram
	}
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    name,
		Buckets: prometheus.DefBuckets,
	})
	if existing, ok := register(c.registry, histogram); ok {
		if prev, ok := existing.(prometheus.Histogram); ok {
			histogram = prev
		}
	}
	c.histograms[name] = histogram
	return histogram
}

// register attempts to register m. When the registry already holds a
// collector under the same name, it returns that collector so the caller can
// reuse it instead of the fresh one.
func register(r prometheus.Registerer, m prometheus.Collector) (prometheus.Collector, bool) {
	if err := r.Register(m); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector, true
		}
	}
	return nil, false
}
