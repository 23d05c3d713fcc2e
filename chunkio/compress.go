// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkio

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/compress/zstd"
	"github.com/grailbio/base/errors"
	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the algorithm used to compress chunk records.
// The zero value is None. Compression implements flag.Value so that
// it may be configured by flags and configuration profiles.
type Compression uint8

const (
	// None stores records uncompressed.
	None Compression = iota
	// Zstd compresses records with zstandard.
	Zstd
	// S2 compresses records with S2, a faster Snappy extension.
	S2
	// LZ4 compresses records with LZ4 block compression.
	LZ4

	maxCompression
)

// DefaultCompression is the compression used by stores unless
// configured otherwise.
const DefaultCompression = Zstd

var compressionNames = [...]string{
	None: "none",
	Zstd: "zstd",
	S2:   "s2",
	LZ4:  "lz4",
}

// String returns the name of the compression algorithm.
func (c Compression) String() string {
	if c >= maxCompression {
		return fmt.Sprintf("Compression(%d)", c)
	}
	return compressionNames[c]
}

// Set sets the compression algorithm by name.
func (c *Compression) Set(s string) error {
	for i, name := range compressionNames {
		if strings.EqualFold(s, name) {
			*c = Compression(i)
			return nil
		}
	}
	return errors.E(errors.Invalid, fmt.Sprintf("chunkio: unknown compression %q", s))
}

// compress compresses src, appending into dst's storage where
// possible. It returns the method that was actually used: when the
// compressed form is not smaller than src, None is returned along
// with src itself.
func (c Compression) compress(dst, src []byte) (Compression, []byte, error) {
	var (
		out []byte
		err error
	)
	switch c {
	case None:
		return None, src, nil
	case Zstd:
		buf := bytes.NewBuffer(dst[:0])
		var zw io.WriteCloser
		if zw, err = zstd.NewWriter(buf); err != nil {
			return None, nil, err
		}
		if _, err = zw.Write(src); err != nil {
			zw.Close()
			return None, nil, err
		}
		if err = zw.Close(); err != nil {
			return None, nil, err
		}
		out = buf.Bytes()
	case S2:
		out = s2.Encode(dst[:cap(dst)], src)
	case LZ4:
		out = grow(dst, lz4.CompressBlockBound(len(src)))
		var n int
		if n, err = lz4.CompressBlock(src, out, nil); err != nil {
			return None, nil, err
		}
		if n == 0 {
			// Incompressible.
			return None, src, nil
		}
		out = out[:n]
	default:
		return None, nil, errors.E(errors.Invalid, fmt.Sprintf("chunkio: invalid compression %d", c))
	}
	if len(out) >= len(src) {
		return None, src, nil
	}
	return c, out, nil
}

// decompress decompresses src, which was compressed with the given
// method and has the uncompressed length n.
func decompress(method Compression, dst, src []byte, n int) ([]byte, error) {
	switch method {
	case None:
		return src, nil
	case Zstd:
		zr, err := zstd.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, err
		}
		dst = grow(dst, n)
		_, err = io.ReadFull(zr, dst)
		if closeErr := zr.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return nil, unexpected(err)
		}
		return dst, nil
	case S2:
		return s2.Decode(dst[:cap(dst)], src)
	case LZ4:
		dst = grow(dst, n)
		m, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, err
		}
		return dst[:m], nil
	default:
		return nil, fmt.Errorf("unknown compression method %d", method)
	}
}

func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}
