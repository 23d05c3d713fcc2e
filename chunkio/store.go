// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkio

import (
	"bufio"
	"os"
	"sync"

	"github.com/grailbio/base/data"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// writeBufferSize is the size of the buffer in front of a store's
// file.
const writeBufferSize = 64 << 10

// Stats describes the data written to a store.
type Stats struct {
	// Chunks is the number of chunks written.
	Chunks int64
	// Elements is the total number of elements in the written chunks.
	Elements int64
	// RawBytes is the serialized size of the chunks before compression.
	RawBytes int64
	// StoredBytes is the number of bytes written to the file.
	StoredBytes int64
}

// A Store is an append-only log of chunks backed by a single private
// file in a scratch area. Chunks are immutable once written. A store
// exclusively owns its file, which is removed when the store is
// closed.
//
// Stores are not safe for concurrent writes, but readers may be
// created and closed while the store is in use.
type Store[T any] struct {
	codec    Codec[T]
	path     string
	registry *Registry

	file *os.File
	w    *bufio.Writer
	enc  *Encoder[T]
	// err is the first write error. A store with a write error
	// is broken: all further writes fail.
	err   error
	stats Stats

	mu      sync.Mutex
	readers int
	closed  bool
	removed bool
}

// Create creates a new store in the provided scratch area. Chunks are
// serialized with codec and compressed with compression. The store
// is tracked by the provided registry, or by Outstanding if it is
// nil.
func Create[T any](scratch Scratch, codec Codec[T], compression Compression, registry *Registry) (*Store[T], error) {
	f, err := scratch.create()
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = Outstanding
	}
	w := bufio.NewWriterSize(f, writeBufferSize)
	s := &Store[T]{
		codec:    codec,
		path:     f.Name(),
		registry: registry,
		file:     f,
		w:        w,
		enc:      NewEncoder(w, codec, compression),
	}
	registry.add(s)
	metrics().stores.Inc()
	return s, nil
}

// Path returns the path of the store's file.
func (s *Store[T]) Path() string { return s.path }

// Stats returns statistics about the chunks written to the store.
func (s *Store[T]) Stats() Stats { return s.stats }

// Write appends chunk to the store as a single record. Empty chunks
// are not permitted. Write failures are not retried: after a failed
// write every subsequent write returns the same error, and the
// store should be closed.
func (s *Store[T]) Write(chunk []T) error {
	if s.isClosed() {
		return ErrClosed
	}
	if s.err != nil {
		return s.err
	}
	if len(chunk) == 0 {
		return errors.E(errors.Invalid, "chunkio: empty chunk")
	}
	raw, n, err := s.enc.Encode(chunk)
	s.stats.StoredBytes += int64(n)
	metrics().bytes.Add(float64(n))
	if err != nil {
		s.err = errors.E(err, "chunkio: write")
		return s.err
	}
	s.stats.Chunks++
	s.stats.Elements += int64(len(chunk))
	s.stats.RawBytes += int64(raw)
	metrics().chunks.Inc()
	metrics().rawBytes.Add(float64(raw))
	return nil
}

// Flush writes any buffered data to the store's file, so that it is
// visible to readers.
func (s *Store[T]) Flush() error {
	if s.isClosed() {
		return ErrClosed
	}
	if s.err != nil {
		return s.err
	}
	if err := s.w.Flush(); err != nil {
		s.err = errors.E(err, "chunkio: flush")
		return s.err
	}
	return nil
}

// NewReader flushes the store and returns a new Reader positioned at
// the store's first chunk. The reader uses its own file handle.
func (s *Store[T]) NewReader() (*Reader[T], error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.E(err, "chunkio: open")
	}
	s.mu.Lock()
	s.readers++
	s.mu.Unlock()
	return newReader(s, f), nil
}

// Close flushes and closes the store's file, and then removes it.
// Removal is deferred while readers created before Close remain
// open: these continue to observe the store's contents until they
// are closed. Close returns ErrClosed if the store was already
// closed.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	metrics().stores.Dec()
	var err error
	if s.err == nil {
		err = s.w.Flush()
	}
	if closeErr := s.file.Close(); err == nil {
		err = closeErr
	}
	if s.readers == 0 {
		if removeErr := s.removeLocked(); err == nil {
			err = removeErr
		}
	}
	log.Debug.Printf("chunkio: closed %s: %d chunks, %d elements, %s stored (%s raw)",
		s.path, s.stats.Chunks, s.stats.Elements, data.Size(s.stats.StoredBytes), data.Size(s.stats.RawBytes))
	if err != nil {
		return errors.E(err, "chunkio: close")
	}
	return nil
}

func (s *Store[T]) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// release is called by readers when they are closed.
func (s *Store[T]) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readers--
	if s.closed && s.readers == 0 {
		return s.removeLocked()
	}
	return nil
}

func (s *Store[T]) removeLocked() error {
	if s.removed {
		return nil
	}
	s.removed = true
	s.registry.remove(s)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store[T]) sweep() error {
	if err := s.Close(); err != nil && err != ErrClosed {
		log.Error.Printf("chunkio: sweep: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked()
}
