package encore

import (
	"fmt"
	"time"

	"github.com/phansite/encore/codec"
)

// ByteCache wraps a Cache[[]byte] and runs values through a compression
// codec on the way in and out. Raw upstream payloads on a dashboard are
// large, repetitive JSON; compressing them stretches the same capacity a
// long way.
//
// The TTL/LRU and statistics semantics are exactly those of the wrapped
// cache; compression never changes whether an entry is live.
type ByteCache struct {
	cache *Cache[[]byte]
	codec codec.Codec
}

// NewByteCache wraps cache with the given codec.
func NewByteCache(cache *Cache[[]byte], c codec.Codec) *ByteCache {
	return &ByteCache{cache: cache, codec: c}
}

// Set compresses value and stores it under key with the given ttl.
func (b *ByteCache) Set(key string, value []byte, ttl time.Duration) error {
	encoded, err := b.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("encoding value for %q: %w", key, err)
	}
	b.cache.Set(key, encoded, ttl)
	return nil
}

// Get returns the decompressed live value stored under key.
func (b *ByteCache) Get(key string) ([]byte, bool, error) {
	encoded, ok := b.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	decoded, err := b.codec.Decode(encoded)
	if err != nil {
		// A corrupt entry is unusable; drop it so the next read
		// repopulates.
		b.cache.Delete(key)
		return nil, false, fmt.Errorf("decoding value for %q: %w", key, err)
	}
	return decoded, true, nil
}

// Has reports whether a live entry exists under key.
func (b *ByteCache) Has(key string) bool {
	return b.cache.Has(key)
}

// Delete removes the entry under key and reports whether one existed.
func (b *ByteCache) Delete(key string) bool {
	return b.cache.Delete(key)
}

// Clear empties the store and resets statistics.
func (b *ByteCache) Clear() {
	b.cache.Clear()
}

// InvalidatePattern removes every key matching the regular expression and
// returns the number removed.
func (b *ByteCache) InvalidatePattern(pattern string) (int, error) {
	return b.cache.InvalidatePattern(pattern)
}

// Stats returns a snapshot of the underlying cache statistics.
func (b *ByteCache) Stats() Stats {
	return b.cache.Stats()
}

// Cache returns the wrapped cache, e.g. for binding through Bind.
func (b *ByteCache) Cache() *Cache[[]byte] {
	return b.cache
}
