// Package workload generates synthetic cache access traces.
//
// A trace models dashboard sessions: each session is an ordered sequence of
// cache keys a user's interactions would request. Different key
// distributions stress a cache differently — zipf traces have a hot set that
// rewards LRU, scans defeat it.
package workload

import (
	"fmt"
	"math/rand"
)

// Pattern names a key distribution.
type Pattern string

const (
	// PatternZipf draws keys from a zipf distribution: a small hot set
	// absorbs most accesses. Typical of dashboards where a few queries
	// dominate.
	PatternZipf Pattern = "zipf"

	// PatternUniform draws keys uniformly at random.
	PatternUniform Pattern = "uniform"

	// PatternScan cycles through the whole key space in order, the
	// adversarial case for LRU.
	PatternScan Pattern = "scan"
)

// Spec describes a trace to generate.
type Spec struct {
	// Pattern selects the key distribution.
	Pattern Pattern

	// Keys is the size of the key space.
	Keys int

	// Sessions is the number of sessions in the trace.
	Sessions int

	// Length is the number of accesses per session.
	Length int

	// Seed makes generation reproducible.
	Seed int64

	// ZipfS is the zipf skew parameter (> 1). Zero means 1.1.
	ZipfS float64
}

// Generate produces the sessions described by spec.
func Generate(spec Spec) ([][]string, error) {
	if spec.Keys <= 0 {
		return nil, fmt.Errorf("workload: key space must be positive, got %d", spec.Keys)
	}
	if spec.Sessions <= 0 || spec.Length <= 0 {
		return nil, fmt.Errorf("workload: sessions and length must be positive, got %d x %d", spec.Sessions, spec.Length)
	}

	rng := rand.New(rand.NewSource(spec.Seed))

	next, err := keySource(spec, rng)
	if err != nil {
		return nil, err
	}

	sessions := make([][]string, spec.Sessions)
	for i := range sessions {
		session := make([]string, spec.Length)
		for j := range session {
			session[j] = fmt.Sprintf("query:%d", next())
		}
		sessions[i] = session
	}
	return sessions, nil
}

// keySource returns a generator of key indices for the spec's pattern.
func keySource(spec Spec, rng *rand.Rand) (func() uint64, error) {
	switch spec.Pattern {
	case PatternZipf, "":
		s := spec.ZipfS
		if s == 0 {
			s = 1.1
		}
		if s <= 1 {
			return nil, fmt.Errorf("workload: zipf skew must be > 1, got %v", s)
		}
		z := rand.NewZipf(rng, s, 1, uint64(spec.Keys-1))
		return z.Uint64, nil
	case PatternUniform:
		return func() uint64 {
			return uint64(rng.Intn(spec.Keys))
		}, nil
	case PatternScan:
		var i uint64
		return func() uint64 {
			v := i % uint64(spec.Keys)
			i++
			return v
		}, nil
	default:
		return nil, fmt.Errorf("workload: unknown pattern %q", spec.Pattern)
	}
}
