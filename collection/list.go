// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package collection

import "github.com/grailbio/base/errors"

// ErrIndexOutOfRange is returned by List operations given an index
// beyond the list's size.
var ErrIndexOutOfRange = errors.E(errors.Invalid, "collection: index out of range")

// List is an index-addressed veneer over a Collection. Collections
// have no random access: every List operation is implemented by a
// linear scan, and every mutation by rebuilding the whole
// collection. Each call therefore costs O(n) time and, for
// mutations, O(n) transient disk. List exists for callers that
// require list semantics; new code should prefer streaming.
type List[T any] struct {
	*Collection[T]
}

// NewList returns a List backed by c.
func NewList[T any](c *Collection[T]) *List[T] {
	return &List[T]{c}
}

func (l *List[T]) checkIndex(i, max uint64) error {
	if err := l.check(); err != nil {
		return err
	}
	if i >= max {
		return ErrIndexOutOfRange
	}
	return nil
}

// errStop ends a scan early.
var errStop = errors.New("stop")

// Get returns the element at index i.
func (l *List[T]) Get(i uint64) (v T, err error) {
	if err = l.checkIndex(i, l.ExactSize()); err != nil {
		return v, err
	}
	err = l.each(func(j uint64, w T) error {
		if j == i {
			v = w
			return errStop
		}
		return nil
	})
	if err == errStop {
		err = nil
	}
	return v, err
}

// Set replaces the element at index i with v, returning the previous
// element.
func (l *List[T]) Set(i uint64, v T) (old T, err error) {
	if err = l.checkIndex(i, l.ExactSize()); err != nil {
		return old, err
	}
	err = l.transform(func(j uint64, w T, b *Collection[T]) error {
		if j == i {
			old = w
			return b.Add(v)
		}
		return b.Add(w)
	})
	return old, err
}

// Insert inserts v at index i, shifting subsequent elements. Index
// ExactSize() appends.
func (l *List[T]) Insert(i uint64, v T) error {
	if err := l.checkIndex(i, l.ExactSize()+1); err != nil {
		return err
	}
	if i == l.ExactSize() {
		return l.Add(v)
	}
	return l.transform(func(j uint64, w T, b *Collection[T]) error {
		if j == i {
			if err := b.Add(v); err != nil {
				return err
			}
		}
		return b.Add(w)
	})
}

// RemoveAt removes the element at index i, returning it.
func (l *List[T]) RemoveAt(i uint64) (old T, err error) {
	if err = l.checkIndex(i, l.ExactSize()); err != nil {
		return old, err
	}
	err = l.transform(func(j uint64, w T, b *Collection[T]) error {
		if j == i {
			old = w
			return nil
		}
		return b.Add(w)
	})
	return old, err
}

// IndexFunc returns the index of the first element satisfying
// match, or -1 if there is none.
func (l *List[T]) IndexFunc(match func(T) bool) (int64, error) {
	index := int64(-1)
	err := l.each(func(j uint64, w T) error {
		if match(w) {
			index = int64(j)
			return errStop
		}
		return nil
	})
	if err == errStop {
		err = nil
	}
	return index, err
}

// LastIndexFunc returns the index of the last element satisfying
// match, or -1 if there is none. The whole collection is scanned.
func (l *List[T]) LastIndexFunc(match func(T) bool) (int64, error) {
	index := int64(-1)
	err := l.each(func(j uint64, w T) error {
		if match(w) {
			index = int64(j)
		}
		return nil
	})
	return index, err
}
