// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package collection implements Collection, an append-only collection
// that may hold more elements than fit comfortably in memory.
// Elements are buffered in memory and spilled to a private scratch
// file in compressed chunks; iteration streams them back in
// insertion order.
//
// Collections do not support in-place edits. Operations that remove
// elements (RetainFunc, RemoveFunc, Clear, and the List veneer) are
// implemented by building a new collection and then adopting its
// state: they cost O(n) time and, transiently, up to the collection's
// current size in extra disk.
//
// Collections are not safe for concurrent use.
package collection

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/spill/chunkio"
)

var (
	// ErrClosed is returned by operations on a closed collection.
	ErrClosed = errors.E(errors.Precondition, "collection: use of closed collection")
	// ErrNotSupported is returned by operations that the collection
	// deliberately does not offer.
	ErrNotSupported = errors.E(errors.NotSupported, "collection: operation not supported")
)

type state int

const (
	active state = iota
	closed
	// moved collections have had their state adopted by another
	// collection.
	moved
)

// A Collection is a disk-spilling, append-only sequence of elements
// of type T. A collection consists of an in-memory buffer (the tail
// chunk, not yet spilled), a chunkio.Store holding the spilled
// chunks, and an exact element count. The store, and hence the
// collection's file, is created on the first spill.
//
// A collection must be closed to remove its file.
type Collection[T any] struct {
	codec chunkio.Codec[T]
	opts  options

	buf    []T
	weight int
	store  *chunkio.Store[T]
	n      uint64
	state  state
}

// New returns a new, empty collection whose elements are serialized
// with the provided codec. New panics if the configured chunk size
// is less than 1.
func New[T any](codec chunkio.Codec[T], opts ...Option) *Collection[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newCollection(codec, o)
}

// NewGob returns a new, empty collection whose elements are
// serialized with encoding/gob.
func NewGob[T any](opts ...Option) *Collection[T] {
	return New[T](chunkio.GobCodec[T]{}, opts...)
}

func newCollection[T any](codec chunkio.Codec[T], o options) *Collection[T] {
	if o.chunkSize < 1 {
		panic(fmt.Sprintf("collection: invalid chunk size %d", o.chunkSize))
	}
	return &Collection[T]{codec: codec, opts: o}
}

// Derive returns a new, empty collection that shares c's codec,
// scratch area, compression, registry, and chunk size. The provided
// options override c's configuration.
func (c *Collection[T]) Derive(opts ...Option) *Collection[T] {
	o := c.opts
	for _, opt := range opts {
		opt(&o)
	}
	return newCollection(c.codec, o)
}

func (c *Collection[T]) check() error {
	if c.state != active {
		return ErrClosed
	}
	return nil
}

// Add appends v to the collection.
func (c *Collection[T]) Add(v T) error {
	return c.AddWeighted(v, 1)
}

// AddWeighted appends v to the collection, counting it as weight
// slots toward the chunk size. Heavier elements cause the buffer to
// be spilled sooner. The element is stored once, and counts as one
// element in the collection's size.
func (c *Collection[T]) AddWeighted(v T, weight int) error {
	if err := c.check(); err != nil {
		return err
	}
	if weight < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("collection: invalid weight %d", weight))
	}
	c.buf = append(c.buf, v)
	c.n++
	c.weight += weight
	if c.weight >= c.opts.chunkSize {
		return c.flush()
	}
	return nil
}

// AddSlice appends each of vs to the collection.
func (c *Collection[T]) AddSlice(vs ...T) error {
	for _, v := range vs {
		if err := c.Add(v); err != nil {
			return err
		}
	}
	return nil
}

// AddAll appends every element of other to c, streaming from other's
// store. If other is c itself, a single copy of c's current contents
// is appended.
func (c *Collection[T]) AddAll(other *Collection[T]) (err error) {
	if err = c.check(); err != nil {
		return err
	}
	n := other.n
	it, err := other.Iterator()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := it.Close(); err == nil {
			err = closeErr
		}
	}()
	var v T
	for i := uint64(0); i < n && it.Scan(&v); i++ {
		if err = c.Add(v); err != nil {
			return err
		}
	}
	return it.Err()
}

// flush spills the in-memory buffer to the store as one chunk.
func (c *Collection[T]) flush() error {
	if len(c.buf) == 0 {
		return nil
	}
	if c.store == nil {
		store, err := chunkio.Create(c.opts.scratch, c.codec, c.opts.compression, c.opts.registry)
		if err != nil {
			return err
		}
		c.store = store
	}
	if err := c.store.Write(c.buf); err != nil {
		return err
	}
	clear(c.buf)
	c.buf = c.buf[:0]
	c.weight = 0
	return nil
}

// Iterator returns a new iterator positioned at the collection's
// first element. Any buffered elements are spilled first, so that
// the iterator observes every element added so far. The returned
// iterator must be closed.
func (c *Collection[T]) Iterator() (*Iterator[T], error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := c.flush(); err != nil {
		return nil, err
	}
	if c.store == nil {
		return &Iterator[T]{}, nil
	}
	r, err := c.store.NewReader()
	if err != nil {
		return nil, err
	}
	return &Iterator[T]{r: r}, nil
}

// ContainsFunc reports whether any element of the collection
// satisfies match. ContainsFunc performs a linear scan.
func (c *Collection[T]) ContainsFunc(match func(T) bool) (found bool, err error) {
	it, err := c.Iterator()
	if err != nil {
		return false, err
	}
	defer func() {
		if closeErr := it.Close(); err == nil {
			err = closeErr
		}
	}()
	var v T
	for it.Scan(&v) {
		if match(v) {
			return true, nil
		}
	}
	return false, it.Err()
}

// RetainFunc removes every element that does not satisfy keep.
func (c *Collection[T]) RetainFunc(keep func(T) bool) error {
	return c.rebuild(func(v T) (bool, error) { return keep(v), nil })
}

// RemoveFunc removes every element that satisfies drop.
func (c *Collection[T]) RemoveFunc(drop func(T) bool) error {
	return c.rebuild(func(v T) (bool, error) { return !drop(v), nil })
}

// Clear removes every element of the collection and releases its
// file.
func (c *Collection[T]) Clear() error {
	if err := c.check(); err != nil {
		return err
	}
	return c.Adopt(c.Derive())
}

// rebuild replaces c with a collection containing only the elements
// for which keep returns true.
func (c *Collection[T]) rebuild(keep func(T) (bool, error)) error {
	return c.transform(func(_ uint64, v T, b *Collection[T]) error {
		ok, err := keep(v)
		if err != nil || !ok {
			return err
		}
		return b.Add(v)
	})
}

// transform builds a new collection by invoking fn on each element
// of c, in order, along with its index and the collection under
// construction; it then adopts the result.
func (c *Collection[T]) transform(fn func(i uint64, v T, b *Collection[T]) error) error {
	if err := c.check(); err != nil {
		return err
	}
	b := c.Derive()
	err := c.each(func(i uint64, v T) error { return fn(i, v, b) })
	if err != nil {
		if closeErr := b.Close(); closeErr != nil {
			return errors.E(err, fmt.Sprintf("collection: also failed to close builder: %v", closeErr))
		}
		return err
	}
	return c.Adopt(b)
}

// each invokes fn on each element of c in order.
func (c *Collection[T]) each(fn func(i uint64, v T) error) (err error) {
	it, err := c.Iterator()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := it.Close(); err == nil {
			err = closeErr
		}
	}()
	var (
		v T
		i uint64
	)
	for ; it.Scan(&v); i++ {
		if err = fn(i, v); err != nil {
			return err
		}
	}
	return it.Err()
}

// Adopt transfers src's state (buffer, store, size, and chunk size)
// to c, and closes c's previous store, removing its file. Src is
// left without state of its own: closing it is a no-op, and any
// other operation returns ErrClosed. Src must be a distinct
// collection with the same codec as c, typically obtained from
// c.Derive.
func (c *Collection[T]) Adopt(src *Collection[T]) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := src.check(); err != nil {
		return err
	}
	if src == c {
		return errors.E(errors.Invalid, "collection: cannot adopt self")
	}
	old := c.store
	c.buf, c.weight, c.store, c.n = src.buf, src.weight, src.store, src.n
	c.opts.chunkSize = src.opts.chunkSize
	src.buf, src.weight, src.store, src.n = nil, 0, nil, 0
	src.state = moved
	if old != nil {
		return old.Close()
	}
	return nil
}

// Size returns the number of elements in the collection. Sizes that
// do not fit in an int are reported as math.MaxInt: Size is not
// reliable above that bound; use ExactSize instead.
func (c *Collection[T]) Size() int {
	if c.n > math.MaxInt {
		return math.MaxInt
	}
	return int(c.n)
}

// ExactSize returns the exact number of elements in the collection,
// or zero if it is closed.
func (c *Collection[T]) ExactSize() uint64 { return c.n }

// ChunkSize returns the collection's chunk size.
func (c *Collection[T]) ChunkSize() int { return c.opts.chunkSize }

// Stats describes a collection's storage.
type Stats struct {
	chunkio.Stats
	// Buffered is the number of elements held in memory, not yet
	// spilled.
	Buffered int
}

// Stats returns storage statistics for the collection.
func (c *Collection[T]) Stats() Stats {
	s := Stats{Buffered: len(c.buf)}
	if c.store != nil {
		s.Stats = c.store.Stats()
	}
	return s
}

// Path returns the path of the collection's file, or "" if nothing
// has been spilled yet.
func (c *Collection[T]) Path() string {
	if c.store == nil {
		return ""
	}
	return c.store.Path()
}

// ToSlice is not supported: collections exist to avoid materializing
// their elements in memory. Callers that need a slice should iterate
// and accept the cost explicitly.
func (c *Collection[T]) ToSlice() ([]T, error) {
	return nil, ErrNotSupported
}

// Close closes the collection and removes its file. A closed
// collection is terminal: every subsequent operation, including
// Close, returns ErrClosed. The accessors Size, ExactSize, Stats, and
// Path have no error return; they report zero values once the
// collection is closed. Closing a collection whose state was
// adopted by another is a no-op.
func (c *Collection[T]) Close() error {
	switch c.state {
	case moved:
		return nil
	case closed:
		return ErrClosed
	}
	c.state = closed
	c.buf, c.weight, c.n = nil, 0, 0
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}
