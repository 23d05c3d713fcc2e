// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package spill

import (
	"cmp"
	"context"

	"github.com/grailbio/spill/collection"
	"github.com/grailbio/spill/sortio"
)

// New returns a new collection of elements of type T, serialized
// with encoding/gob.
func New[T any](opts ...collection.Option) *collection.Collection[T] {
	return collection.NewGob[T](opts...)
}

// Sort sorts the collection c in ascending order.
func Sort[T cmp.Ordered](ctx context.Context, c *collection.Collection[T], opts ...sortio.Option) error {
	return sortio.Sort(ctx, c, cmp.Compare[T], opts...)
}

// Collect returns the elements of c in a slice. Collect is intended
// for collections known to be small, such as in tests.
func Collect[T any](c *collection.Collection[T]) (vals []T, err error) {
	it, err := c.Iterator()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := it.Close(); err == nil {
			err = closeErr
		}
	}()
	var v T
	for it.Scan(&v) {
		vals = append(vals, v)
	}
	return vals, it.Err()
}
