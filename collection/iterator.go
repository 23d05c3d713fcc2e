// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package collection

import (
	"github.com/grailbio/spill/chunkio"
)

// An Iterator streams the elements of a collection in insertion
// order. It combines a chunkio.Reader with a cursor over the most
// recently read chunk, so that only one chunk is held in memory at a
// time.
//
// Iterators hold an open file and must be closed. An iterator
// observes the collection as it was when the iterator was created:
// if the collection is subsequently rebuilt, sorted, or cleared, the
// iterator continues over the previous contents until it is closed.
type Iterator[T any] struct {
	r      *chunkio.Reader[T]
	chunk  []T
	pos    int
	err    error
	closed bool
}

// HasNext reports whether another element is available, reading the
// next chunk from disk if needed. HasNext returns false when the
// iterator is exhausted, closed, or has encountered an error; Err
// distinguishes these cases.
func (it *Iterator[T]) HasNext() bool {
	if it.closed {
		return false
	}
	for it.pos == len(it.chunk) {
		if it.err != nil {
			return false
		}
		if it.r == nil {
			it.err = chunkio.EOF
			return false
		}
		chunk, err := it.r.ReadChunk()
		if err != nil {
			it.chunk, it.pos, it.err = nil, 0, err
			return false
		}
		it.chunk, it.pos = chunk, 0
	}
	return true
}

// Next returns the next element. Next returns chunkio.EOF once the
// iterator is exhausted, ErrClosed if the iterator was closed, or
// the error that terminated iteration.
func (it *Iterator[T]) Next() (T, error) {
	var v T
	if !it.HasNext() {
		if it.closed {
			return v, ErrClosed
		}
		return v, it.err
	}
	v = it.chunk[it.pos]
	it.pos++
	return v, nil
}

// Scan scans the next element into v. Scan returns true while
// elements remain; when it returns false the caller should inspect
// Err to see whether iteration stopped because the collection was
// exhausted or because an error occurred.
func (it *Iterator[T]) Scan(v *T) bool {
	if !it.HasNext() {
		return false
	}
	*v = it.chunk[it.pos]
	it.pos++
	return true
}

// Err returns the error, if any, that terminated iteration.
func (it *Iterator[T]) Err() error {
	if it.err == chunkio.EOF {
		return nil
	}
	return it.err
}

// Close releases the iterator's file handle. Closing an iterator
// does not affect its collection or any other iterator. Close is
// idempotent.
func (it *Iterator[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.chunk = nil
	if it.r == nil {
		return nil
	}
	return it.r.Close()
}
