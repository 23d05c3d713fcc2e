// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkio

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/base/errors"
)

type testStruct struct {
	A, B int
	C    string
}

var compressions = []Compression{None, Zstd, S2, LZ4}

func testRoundTrip[T any](t *testing.T, codec Codec[T], chunks [][]T) {
	t.Helper()
	for _, c := range compressions {
		var b bytes.Buffer
		enc := NewEncoder(&b, codec, c)
		for _, chunk := range chunks {
			if _, _, err := enc.Encode(chunk); err != nil {
				t.Fatalf("%s: %v", c, err)
			}
		}
		dec := NewDecoder(&b, codec)
		for i, want := range chunks {
			got, err := dec.Decode()
			if err != nil {
				t.Fatalf("%s: chunk %d: %v", c, i, err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%s: chunk %d: (-want +got)\n%s", c, i, diff)
			}
		}
		if _, err := dec.Decode(); err != EOF {
			t.Errorf("%s: got %v, want EOF", c, err)
		}
	}
}

func TestGobCodec(t *testing.T) {
	fz := fuzz.NewWithSeed(123)
	fz.NilChance(0)
	chunks := make([][]testStruct, 5)
	for i := range chunks {
		fz.NumElements(1, 100)
		fz.Fuzz(&chunks[i])
	}
	testRoundTrip[testStruct](t, GobCodec[testStruct]{}, chunks)
}

func TestStringCodec(t *testing.T) {
	fz := fuzz.NewWithSeed(456)
	fz.NilChance(0)
	chunks := make([][]string, 5)
	for i := range chunks {
		fz.NumElements(1, 100)
		fz.Fuzz(&chunks[i])
	}
	// Highly compressible chunks exercise the compressed paths.
	chunks = append(chunks, []string{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", ""})
	testRoundTrip[string](t, StringCodec{}, chunks)
}

func TestInt64Codec(t *testing.T) {
	chunks := [][]int64{{0}, {-1, 1, -1 << 63, 1<<63 - 1}, make([]int64, 1000)}
	testRoundTrip[int64](t, Int64Codec{}, chunks)
}

func TestEncoderSelfContained(t *testing.T) {
	// Records must not reference earlier records: each should have
	// the same encoding regardless of position.
	var b bytes.Buffer
	enc := NewEncoder[testStruct](&b, GobCodec[testStruct]{}, None)
	chunk := []testStruct{{1, 2, "x"}, {3, 4, "y"}}
	_, n1, err := enc.Encode(chunk)
	if err != nil {
		t.Fatal(err)
	}
	_, n2, err := enc.Encode(chunk)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := n2, n1; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	p := b.Bytes()
	if !bytes.Equal(p[:n1], p[n1:]) {
		t.Error("records differ")
	}
}

func encodeInts(t *testing.T, c Compression, chunks ...[]int64) []byte {
	t.Helper()
	var b bytes.Buffer
	enc := NewEncoder[int64](&b, Int64Codec{}, c)
	for _, chunk := range chunks {
		if _, _, err := enc.Encode(chunk); err != nil {
			t.Fatal(err)
		}
	}
	return b.Bytes()
}

func TestDecodeCorrupt(t *testing.T) {
	for _, c := range compressions {
		p := encodeInts(t, c, []int64{1, 2, 3, 4, 5, 6, 7, 8}, []int64{9})
		// Flip a bit in the first record's payload.
		q := append([]byte{}, p...)
		q[5] ^= 0x40
		dec := NewDecoder[int64](bytes.NewReader(q), Int64Codec{})
		if _, err := dec.Decode(); !errors.Is(errors.Integrity, err) {
			t.Errorf("%s: bit flip: got %v, want integrity error", c, err)
		}
		// Truncate mid-record.
		for _, n := range []int{1, 3, len(p) - 1} {
			dec = NewDecoder[int64](bytes.NewReader(p[:n]), Int64Codec{})
			var err error
			for err == nil {
				_, err = dec.Decode()
			}
			if !errors.Is(errors.Integrity, err) {
				t.Errorf("%s: truncated at %d: got %v, want integrity error", c, n, err)
			}
		}
	}
}

func TestDecodeCorruptHeader(t *testing.T) {
	p := encodeInts(t, None, []int64{1, 2, 3})
	// Byte 1 is the element count.
	if got, want := p[1], byte(3); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	for _, count := range []byte{0, 1, 2, 4} {
		q := append([]byte{}, p...)
		q[1] = count
		dec := NewDecoder[int64](bytes.NewReader(q), Int64Codec{})
		chunk, err := dec.Decode()
		if !errors.Is(errors.Integrity, err) {
			t.Errorf("count %d: got %v, %v; want integrity error", count, chunk, err)
		}
	}
}

// trailingCodec is an Int64Codec that writes a junk byte after each
// chunk.
type trailingCodec struct{ Int64Codec }

func (c trailingCodec) Encode(w io.Writer, chunk []int64) error {
	if err := c.Int64Codec.Encode(w, chunk); err != nil {
		return err
	}
	_, err := w.Write([]byte{0x7f})
	return err
}

func TestDecodeTrailingBytes(t *testing.T) {
	var b bytes.Buffer
	enc := NewEncoder[int64](&b, trailingCodec{}, None)
	if _, _, err := enc.Encode([]int64{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder[int64](&b, Int64Codec{})
	if _, err := dec.Decode(); !errors.Is(errors.Integrity, err) {
		t.Errorf("got %v, want integrity error", err)
	}
}

func TestEncodeEmpty(t *testing.T) {
	var b bytes.Buffer
	enc := NewEncoder[int64](&b, Int64Codec{}, None)
	if _, _, err := enc.Encode(nil); !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v, want invalid", err)
	}
	if got, want := b.Len(), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecodeInvalidMethod(t *testing.T) {
	dec := NewDecoder[int64](bytes.NewReader([]byte{0xff, 1, 1, 1, 0}), Int64Codec{})
	if _, err := dec.Decode(); !errors.Is(errors.Integrity, err) {
		t.Errorf("got %v, want integrity error", err)
	}
}

func TestDecodeEmpty(t *testing.T) {
	dec := NewDecoder[int64](bytes.NewReader(nil), Int64Codec{})
	if _, err := dec.Decode(); err != EOF {
		t.Errorf("got %v, want EOF", err)
	}
}

func TestCompressionFlag(t *testing.T) {
	for _, c := range compressions {
		var d Compression
		if err := d.Set(c.String()); err != nil {
			t.Fatal(err)
		}
		if got, want := d, c; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
	var d Compression
	if err := d.Set("ZSTD"); err != nil || d != Zstd {
		t.Errorf("got %v, %v", d, err)
	}
	if err := d.Set("brotli"); !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v, want invalid", err)
	}
}
