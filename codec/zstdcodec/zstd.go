// Package zstdcodec provides a zstd compression codec.
package zstdcodec

import (
	"github.com/klauspost/compress/zstd"

	"github.com/phansite/encore/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements zstd compression. The underlying encoder and decoder are
// stateless in EncodeAll/DecodeAll mode and safe for concurrent use.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New returns a new zstd codec.
func New() (*Codec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Encode compresses src with zstd.
func (c *Codec) Encode(src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, nil), nil
}

// Decode decompresses zstd data.
func (c *Codec) Decode(src []byte) ([]byte, error) {
	return c.dec.DecodeAll(src, nil)
}

// Name returns "zstd".
func (c *Codec) Name() string {
	return "zstd"
}
