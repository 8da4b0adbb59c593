// Package simulation replays access traces against cache configurations.
package simulation

import (
	"fmt"
	"time"

	"github.com/phansite/encore"
)

// Config describes one cache configuration under test.
type Config struct {
	// Name labels the configuration in results and reports.
	Name string

	// Capacity is the cache capacity in entries.
	Capacity int

	// TTL is the lifetime written with every entry.
	TTL time.Duration
}

// Simulator replays traces against one or more cache configurations.
// Simulated time advances by a fixed step per access, so TTL expiry is
// deterministic and independent of wall-clock speed.
type Simulator struct {
	configs []Config
	step    time.Duration
}

// NewSimulator creates a Simulator. step is the simulated time between
// consecutive accesses.
func NewSimulator(step time.Duration, configs ...Config) *Simulator {
	return &Simulator{
		configs: configs,
		step:    step,
	}
}

// SimulateSessions replays all sessions, in order, against each
// configuration and aggregates per-session hit rates.
func (s *Simulator) SimulateSessions(sessions [][]string) (map[string]*AggregateResult, error) {
	results := make(map[string]*AggregateResult, len(s.configs))

	for _, cfg := range s.configs {
		agg, err := s.simulateOne(cfg, sessions)
		if err != nil {
			return nil, err
		}
		results[cfg.Name] = agg
	}
	return results, nil
}

func (s *Simulator) simulateOne(cfg Config, sessions [][]string) (*AggregateResult, error) {
	now := time.Unix(0, 0)
	cache, err := encore.New[struct{}](cfg.Capacity, encore.WithClock(func() time.Time {
		return now
	}))
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", cfg.Name, err)
	}

	agg := &AggregateResult{
		ConfigName:        cfg.Name,
		KeyHits:           make(map[string]int),
		HitRatePerSession: make([]float64, 0, len(sessions)),
	}

	for _, session := range sessions {
		var hits int
		for _, key := range session {
			now = now.Add(s.step)
			agg.KeyHits[key]++
			if _, ok := cache.Get(key); ok {
				hits++
				continue
			}
			cache.Set(key, struct{}{}, cfg.TTL)
		}
		agg.TotalLookups += len(session)
		agg.TotalHits += hits
		if len(session) > 0 {
			agg.HitRatePerSession = append(agg.HitRatePerSession,
				float64(hits)/float64(len(session))*100)
		}
	}

	agg.Evictions = cache.Stats().Evictions
	return agg, nil
}

// AggregateResult contains aggregated results for one configuration.
type AggregateResult struct {
	ConfigName   string
	TotalLookups int
	TotalHits    int
	Evictions    int64

	// HitRatePerSession holds each session's hit rate as a percentage,
	// for statistical comparison across configurations.
	HitRatePerSession []float64

	// KeyHits counts accesses per key across the whole trace.
	KeyHits map[string]int
}

// HitRate returns the overall hit rate as a percentage.
func (a *AggregateResult) HitRate() float64 {
	if a.TotalLookups == 0 {
		return 0
	}
	return float64(a.TotalHits) / float64(a.TotalLookups) * 100
}
