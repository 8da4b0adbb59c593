package simulation

import (
	"testing"
	"time"
)

func TestSimulator_HotKeyHits(t *testing.T) {
	sim := NewSimulator(time.Second, Config{Name: "small", Capacity: 10, TTL: time.Hour})

	// One session hammering a single key: first lookup cold, rest warm.
	session := make([]string, 10)
	for i := range session {
		session[i] = "query:hot"
	}

	results, err := sim.SimulateSessions([][]string{session})
	if err != nil {
		t.Fatalf("SimulateSessions() error = %v", err)
	}

	agg := results["small"]
	if agg.TotalLookups != 10 {
		t.Errorf("TotalLookups = %d, want 10", agg.TotalLookups)
	}
	if agg.TotalHits != 9 {
		t.Errorf("TotalHits = %d, want 9", agg.TotalHits)
	}
	if got := agg.HitRate(); got != 90 {
		t.Errorf("HitRate() = %v, want 90", got)
	}
}

func TestSimulator_TTLExpiresBetweenAccesses(t *testing.T) {
	// Step is one minute but TTL is 30 seconds: every access is cold.
	sim := NewSimulator(time.Minute, Config{Name: "short-ttl", Capacity: 10, TTL: 30 * time.Second})

	session := []string{"query:a", "query:a", "query:a"}
	results, err := sim.SimulateSessions([][]string{session})
	if err != nil {
		t.Fatalf("SimulateSessions() error = %v", err)
	}

	if got := results["short-ttl"].TotalHits; got != 0 {
		t.Errorf("TotalHits = %d, want 0 with always-expired entries", got)
	}
}

func TestSimulator_ScanEvicts(t *testing.T) {
	sim := NewSimulator(time.Second, Config{Name: "tiny", Capacity: 2, TTL: time.Hour})

	// A scan over 4 keys repeated twice never hits in a 2-entry cache.
	session := []string{
		"query:0", "query:1", "query:2", "query:3",
		"query:0", "query:1", "query:2", "query:3",
	}
	results, err := sim.SimulateSessions([][]string{session})
	if err != nil {
		t.Fatalf("SimulateSessions() error = %v", err)
	}

	agg := results["tiny"]
	if agg.TotalHits != 0 {
		t.Errorf("TotalHits = %d, want 0 under a scan larger than capacity", agg.TotalHits)
	}
	if agg.Evictions == 0 {
		t.Error("Evictions = 0, want evictions under a scan larger than capacity")
	}
}

func TestSimulator_InvalidConfig(t *testing.T) {
	sim := NewSimulator(time.Second, Config{Name: "broken", Capacity: 0, TTL: time.Hour})
	if _, err := sim.SimulateSessions([][]string{{"query:0"}}); err == nil {
		t.Error("SimulateSessions() expected error for zero capacity")
	}
}

func TestComputeMetrics(t *testing.T) {
	agg := &AggregateResult{
		ConfigName:        "test",
		TotalLookups:      200,
		TotalHits:         150,
		HitRatePerSession: []float64{50, 70, 80, 100},
		KeyHits:           map[string]int{"query:a": 170, "query:b": 10, "query:c": 10, "query:d": 10},
	}

	m := ComputeMetrics(agg)
	if m.OverallHitRate != 75 {
		t.Errorf("OverallHitRate = %v, want 75", m.OverallHitRate)
	}
	if m.MinSessionHitRate != 50 || m.MaxSessionHitRate != 100 {
		t.Errorf("session hit rate range = [%v, %v], want [50, 100]", m.MinSessionHitRate, m.MaxSessionHitRate)
	}
	if m.KeyConcentration <= 0 {
		t.Errorf("KeyConcentration = %v, want > 0 for a skewed trace", m.KeyConcentration)
	}
	// query:a is the top 10% of 4 keys (1 key) and absorbs 85% of accesses.
	if m.TopKeyPct != 85 {
		t.Errorf("TopKeyPct = %v, want 85", m.TopKeyPct)
	}
}

func TestComputeMetrics_Empty(t *testing.T) {
	m := ComputeMetrics(&AggregateResult{ConfigName: "empty"})
	if m.OverallHitRate != 0 || m.KeyConcentration != 0 {
		t.Errorf("ComputeMetrics() on empty result = %+v, want zeros", m)
	}
}
