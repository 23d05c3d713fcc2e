// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkio

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
)

// A Codec serializes chunks of elements of type T. Every call to
// Encode must produce a self-contained encoding: no codec state may
// be carried from one chunk to the next, so that writing many chunks
// neither grows encoder state without bound nor produces records
// that reference earlier ones.
type Codec[T any] interface {
	// Encode writes the encoding of chunk to w.
	Encode(w io.Writer, chunk []T) error
	// Decode decodes a chunk from r. The number of elements n
	// recorded by the writer is provided so that implementations
	// can preallocate.
	Decode(r io.Reader, n int) ([]T, error)
}

// GobCodec is a Codec that uses encoding/gob. A fresh gob encoder
// (and decoder) is used for each chunk, so type information is
// retransmitted with every record. Interface-typed elements must be
// registered with gob.Register.
type GobCodec[T any] struct{}

// Encode implements Codec.
func (GobCodec[T]) Encode(w io.Writer, chunk []T) error {
	err := gob.NewEncoder(w).Encode(chunk)
	// Here we're encoding a user-defined type. We pessimistically
	// attribute any errors that appear to come from gob as being
	// related to the inability to encode this user-defined type.
	if err != nil && strings.HasPrefix(err.Error(), "gob: ") {
		err = errors.E(errors.Fatal, err)
	}
	return err
}

// Decode implements Codec.
func (GobCodec[T]) Decode(r io.Reader, n int) ([]T, error) {
	chunk := make([]T, 0, n)
	if err := gob.NewDecoder(r).Decode(&chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

// StringCodec encodes strings as a sequence of uvarint-prefixed
// byte strings.
type StringCodec struct{}

// Encode implements Codec.
func (StringCodec) Encode(w io.Writer, chunk []string) error {
	var buf [binary.MaxVarintLen64]byte
	for _, s := range chunk {
		n := binary.PutUvarint(buf[:], uint64(len(s)))
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// Decode implements Codec.
func (StringCodec) Decode(r io.Reader, n int) ([]string, error) {
	br := byteReader(r)
	chunk := make([]string, n)
	var p []byte
	for i := range chunk {
		m, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, unexpected(err)
		}
		if cap(p) < int(m) {
			p = make([]byte, m)
		}
		if _, err := io.ReadFull(br, p[:m]); err != nil {
			return nil, unexpected(err)
		}
		chunk[i] = string(p[:m])
	}
	return chunk, nil
}

// Int64Codec encodes int64s as zig-zag varints.
type Int64Codec struct{}

// Encode implements Codec.
func (Int64Codec) Encode(w io.Writer, chunk []int64) error {
	p := make([]byte, 0, len(chunk)*2)
	for _, v := range chunk {
		p = binary.AppendVarint(p, v)
	}
	_, err := w.Write(p)
	return err
}

// Decode implements Codec.
func (Int64Codec) Decode(r io.Reader, n int) ([]int64, error) {
	br := byteReader(r)
	chunk := make([]int64, n)
	for i := range chunk {
		v, err := binary.ReadVarint(br)
		if err != nil {
			return nil, unexpected(err)
		}
		chunk[i] = v
	}
	return chunk, nil
}

type readByteReader interface {
	io.Reader
	io.ByteReader
}

func byteReader(r io.Reader) readByteReader {
	if br, ok := r.(readByteReader); ok {
		return br
	}
	return bufio.NewReader(r)
}

// unexpected turns a premature io.EOF into io.ErrUnexpectedEOF:
// codecs are always handed a complete record, so running out of
// input means the record is short.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

var (
	_ Codec[string] = StringCodec{}
	_ Codec[int64]  = Int64Codec{}
)
