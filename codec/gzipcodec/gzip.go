// Package gzipcodec provides a gzip compression codec.
package gzipcodec

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/phansite/encore/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements gzip compression.
type Codec struct{}

// New returns a new gzip codec.
func New() *Codec {
	return &Codec{}
}

// Encode compresses src with gzip.
func (c *Codec) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decompresses gzip data.
func (c *Codec) Decode(src []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Name returns "gzip".
func (c *Codec) Name() string {
	return "gzip"
}
