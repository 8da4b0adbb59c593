package simulation

import (
	"sort"
)

// Metrics contains computed metrics from simulation results.
type Metrics struct {
	// Core metrics.
	TotalLookups   int
	TotalHits      int
	Evictions      int64
	OverallHitRate float64

	// Distribution of per-session hit rates. The low tail is the one
	// that hurts: sessions served almost entirely cold.
	MedianSessionHitRate float64
	P10SessionHitRate    float64
	P90SessionHitRate    float64
	MinSessionHitRate    float64
	MaxSessionHitRate    float64

	// Locality metrics.
	KeyConcentration float64 // Gini coefficient of key access counts.
	TopKeyPct        float64 // Percentage of accesses hitting the top 10% of keys.
}

// ComputeMetrics computes detailed metrics from an aggregate result.
func ComputeMetrics(result *AggregateResult) *Metrics {
	m := &Metrics{
		TotalLookups:   result.TotalLookups,
		TotalHits:      result.TotalHits,
		Evictions:      result.Evictions,
		OverallHitRate: result.HitRate(),
	}

	if len(result.HitRatePerSession) > 0 {
		sorted := make([]float64, len(result.HitRatePerSession))
		copy(sorted, result.HitRatePerSession)
		sort.Float64s(sorted)

		m.MinSessionHitRate = sorted[0]
		m.MaxSessionHitRate = sorted[len(sorted)-1]
		m.MedianSessionHitRate = percentile(sorted, 50)
		m.P10SessionHitRate = percentile(sorted, 10)
		m.P90SessionHitRate = percentile(sorted, 90)
	}

	if len(result.KeyHits) > 0 {
		m.KeyConcentration = computeGini(result.KeyHits)
		m.TopKeyPct = computeTopKeyPct(result.KeyHits, result.TotalLookups, 0.1)
	}

	return m
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// computeGini measures how unevenly accesses spread across keys.
// 0 is perfectly even; values near 1 mean a few keys dominate.
func computeGini(hits map[string]int) float64 {
	if len(hits) == 0 {
		return 0
	}

	values := make([]int, 0, len(hits))
	var total int
	for _, v := range hits {
		values = append(values, v)
		total += v
	}
	sort.Ints(values)

	if total == 0 {
		return 0
	}

	// Gini via the sorted-values formula.
	var cum float64
	n := float64(len(values))
	for i, v := range values {
		cum += float64(v) * (2*float64(i+1) - n - 1)
	}
	return cum / (n * float64(total))
}

// computeTopKeyPct returns the share of accesses absorbed by the hottest
// fraction of keys.
func computeTopKeyPct(hits map[string]int, total int, fraction float64) float64 {
	if total == 0 || len(hits) == 0 {
		return 0
	}

	values := make([]int, 0, len(hits))
	for _, v := range hits {
		values = append(values, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	topN := int(float64(len(values)) * fraction)
	if topN < 1 {
		topN = 1
	}

	var topHits int
	for _, v := range values[:topN] {
		topHits += v
	}
	return float64(topHits) / float64(total) * 100
}
