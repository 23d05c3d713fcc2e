// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package chunkio implements the on-disk representation of spilled
// collections. A Store appends chunks (bounded batches of elements)
// to a private scratch file as a sequence of independently
// serialized and compressed records; a Reader streams the chunks
// back in the order in which they were written.
//
// The format is ephemeral. It is not versioned and is never meant
// to outlive the process that wrote it.
package chunkio

import (
	"bufio"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// EOF is the error returned by Reader.ReadChunk when no more chunks
// are available. EOF is intended as a sentinel error: it signals a
// graceful end of the stream. If the stream terminates
// unexpectedly, an error of kind errors.Integrity is returned
// instead.
var EOF = errors.New("EOF")

// ErrClosed is returned by operations on a closed Store or Reader.
var ErrClosed = errors.E(errors.Precondition, "chunkio: use of closed store")

// A Reader is an independent read cursor over a Store's file. Each
// call to ReadChunk returns the next chunk in write order. Readers
// hold their own file handle; closing a Reader does not affect the
// Store or any other Reader.
//
// Read should not be called concurrently.
type Reader[T any] struct {
	store *Store[T]
	file  *os.File
	dec   *Decoder[T]
	err   error
}

// ReadChunk returns the next chunk in the store, or EOF when the
// stream is exhausted. Once ReadChunk returns an error, it returns
// the same error on every subsequent call: there is no attempt to
// skip over a damaged record.
func (r *Reader[T]) ReadChunk() ([]T, error) {
	if r.err != nil {
		return nil, r.err
	}
	chunk, err := r.dec.Decode()
	if err != nil {
		if err != EOF {
			err = errors.E(err, "chunkio: read "+r.file.Name())
		}
		r.err = err
		return nil, err
	}
	return chunk, nil
}

// Close releases the reader's file handle. If the owning store has
// already been closed and this was its last open reader, the
// store's file is removed.
func (r *Reader[T]) Close() error {
	if r.file == nil {
		return ErrClosed
	}
	err := r.file.Close()
	r.file = nil
	r.err = ErrClosed
	if releaseErr := r.store.release(); releaseErr != nil {
		if err == nil {
			err = releaseErr
		} else {
			log.Error.Printf("chunkio: release %s: %v", r.store.path, releaseErr)
		}
	}
	return err
}

func newReader[T any](s *Store[T], f *os.File) *Reader[T] {
	return &Reader[T]{
		store: s,
		file:  f,
		dec:   NewDecoder(bufio.NewReader(f), s.codec),
	}
}
