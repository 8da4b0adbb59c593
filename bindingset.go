package encore

import (
	"context"
	"fmt"
)

// Resource configures one named member of a BindingSet.
type Resource[T any] struct {
	// Key is the cache key, unique within the set.
	Key string

	// Fetch loads the resource.
	Fetch FetchFunc[T]

	// Options apply to this resource only, after any set-wide options.
	Options []BindOption
}

// SetState aggregates the states of all resources in a set.
type SetState[T any] struct {
	// Data maps resource keys to resolved values. Partial: keys appear
	// only once their resource has data.
	Data map[string]T

	// Loading is true while any resource is loading.
	Loading bool

	// Errors maps resource keys to their most recent fetch failure.
	// One resource failing never blocks or invalidates its siblings.
	Errors map[string]error

	// Stale maps resource keys whose data is pending a background refresh.
	Stale map[string]bool
}

// BindingSet wraps one Binding per configured resource and exposes an
// aggregate loading/error/data view over them.
type BindingSet[T any] struct {
	keys     []string
	bindings map[string]*Binding[T]
}

// BindSet attaches a consumer to several keyed resources at once. Set-wide
// options apply to every resource and can be overridden per resource.
// Returns ErrDuplicateResource if two resources share a key.
func BindSet[T any](ctx context.Context, cache *Cache[T], resources []Resource[T], opts ...BindOption) (*BindingSet[T], error) {
	s := &BindingSet[T]{
		keys:     make([]string, 0, len(resources)),
		bindings: make(map[string]*Binding[T], len(resources)),
	}

	for _, res := range resources {
		if _, ok := s.bindings[res.Key]; ok {
			s.Close()
			return nil, fmt.Errorf("%w: %q", ErrDuplicateResource, res.Key)
		}
		combined := make([]BindOption, 0, len(opts)+len(res.Options))
		combined = append(combined, opts...)
		combined = append(combined, res.Options...)

		s.keys = append(s.keys, res.Key)
		s.bindings[res.Key] = Bind(ctx, cache, res.Key, res.Fetch, combined...)
	}
	return s, nil
}

// Snapshot returns the aggregate state across all resources.
func (s *BindingSet[T]) Snapshot() SetState[T] {
	out := SetState[T]{
		Data:   make(map[string]T, len(s.keys)),
		Errors: make(map[string]error),
		Stale:  make(map[string]bool),
	}
	for _, key := range s.keys {
		st := s.bindings[key].Snapshot()
		if st.HasData {
			out.Data[key] = st.Data
		}
		if st.Loading {
			out.Loading = true
		}
		if st.Err != nil {
			out.Errors[key] = st.Err
		}
		if st.Stale {
			out.Stale[key] = true
		}
	}
	return out
}

// Binding returns the underlying binding for key.
func (s *BindingSet[T]) Binding(key string) (*Binding[T], bool) {
	b, ok := s.bindings[key]
	return b, ok
}

// Refresh forces a fetch for the named resources, or for every resource when
// no key is given. Returns ErrUnknownResource for a key that was never
// configured.
func (s *BindingSet[T]) Refresh(ctx context.Context, keys ...string) error {
	targets, err := s.resolve(keys)
	if err != nil {
		return err
	}
	for _, b := range targets {
		b.Refresh(ctx)
	}
	return nil
}

// Invalidate drops the cache entries for the named resources, or for every
// resource when no key is given, marking them stale without refetching.
func (s *BindingSet[T]) Invalidate(keys ...string) error {
	targets, err := s.resolve(keys)
	if err != nil {
		return err
	}
	for _, b := range targets {
		b.Invalidate()
	}
	return nil
}

// Close detaches every binding in the set.
func (s *BindingSet[T]) Close() {
	for _, key := range s.keys {
		s.bindings[key].Close()
	}
}

// resolve maps key names to bindings; an empty list means all resources.
func (s *BindingSet[T]) resolve(keys []string) ([]*Binding[T], error) {
	if len(keys) == 0 {
		out := make([]*Binding[T], 0, len(s.keys))
		for _, key := range s.keys {
			out = append(out, s.bindings[key])
		}
		return out, nil
	}
	out := make([]*Binding[T], 0, len(keys))
	for _, key := range keys {
		b, ok := s.bindings[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownResource, key)
		}
		out = append(out, b)
	}
	return out, nil
}
