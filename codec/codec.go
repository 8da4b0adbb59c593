// Package codec provides compression and decompression for cached payloads.
package codec

// Codec compresses and decompresses byte payloads before they enter and
// after they leave a cache.
type Codec interface {
	// Encode compresses src into a new slice.
	Encode(src []byte) ([]byte, error)
	// Decode decompresses src into a new slice.
	Decode(src []byte) ([]byte, error)
	// Name returns a short codec identifier (e.g., "zstd", "gzip").
	// Returns empty string for no compression.
	Name() string
}
