// Package querykey builds deterministic cache keys for parameterized queries.
//
// Two calls with semantically identical parameters must produce the same key
// so that repeated filter/sort combinations reuse one cache entry. The
// canonical form is the query name followed by the JSON encoding of the
// parameters; encoding/json sorts map keys and walks struct fields in
// declaration order, so the encoding is stable for a given parameter type.
package querykey

import (
	"encoding/json"
	"fmt"
)

// Build returns the canonical cache key for a named query and its parameters.
// A nil params value canonicalizes to an empty object so that parameterless
// queries still get a stable, distinct key.
func Build(name string, params any) (string, error) {
	if params == nil {
		return name + ":{}", nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("canonicalizing params for %q: %w", name, err)
	}
	return name + ":" + string(raw), nil
}
