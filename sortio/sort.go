// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package sortio implements external sorting of collections. Sorting
// proceeds in two phases: the input is partitioned into sorted
// buckets, each bounded in size and spilled to disk as its own
// collection; the buckets are then merged into a single sorted
// collection, which replaces the input.
package sortio

import (
	"context"
	"fmt"

	"github.com/google/btree"
	"github.com/grailbio/base/data"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/spill/collection"
	"github.com/grailbio/spill/internal/defaultsize"
)

// btreeDegree is the degree of the B-tree used to order bucket
// contents in memory.
const btreeDegree = 32

type options struct {
	bucketSize int
	chunkSize  int
	heap       bool
}

// An Option configures a sort.
type Option func(*options)

// BucketSize sets the maximum number of elements held in memory, and
// thus in each sorted bucket. By default, buckets hold
// defaultsize.BucketFactor chunks.
func BucketSize(n int) Option {
	return func(o *options) { o.bucketSize = n }
}

// ChunkSize sets the chunk size of the buckets and of the sorted
// output. By default, the input collection's chunk size is used.
func ChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

// HeapMerge merges buckets with a heap instead of a linear scan of
// bucket heads. The output is identical; the heap is preferable when
// there are many buckets.
func HeapMerge() Option {
	return func(o *options) { o.heap = true }
}

// Stats describes a completed sort.
type Stats struct {
	// Elements is the number of elements sorted.
	Elements uint64
	// Buckets is the number of sorted buckets that were merged.
	Buckets int
	// Bytes is the number of bytes spilled to the sorted output.
	Bytes int64
}

// Sort sorts the collection c according to compare, which must
// define a total order, returning a negative number when a < b, zero
// when a == b, and a positive number when a > b. At most the bucket
// size of elements is held in memory at any time.
//
// Equal elements retain their insertion order within a bucket; equal
// elements from different buckets are emitted in bucket order. Sort
// is therefore stable only when the input fits in a single bucket.
//
// If Sort fails, c should be considered unusable and closed.
func Sort[T any](ctx context.Context, c *collection.Collection[T], compare func(a, b T) int, opts ...Option) error {
	_, err := SortStats(ctx, c, compare, opts...)
	return err
}

// SortStats is like Sort, but also returns statistics about the
// sort.
func SortStats[T any](ctx context.Context, c *collection.Collection[T], compare func(a, b T) int, opts ...Option) (Stats, error) {
	o := options{chunkSize: c.ChunkSize()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bucketSize == 0 {
		o.bucketSize = defaultsize.BucketFactor * o.chunkSize
	}
	if o.chunkSize < 1 || o.bucketSize < 1 {
		return Stats{}, errors.E(errors.Invalid,
			fmt.Sprintf("sortio: invalid chunk size %d or bucket size %d", o.chunkSize, o.bucketSize))
	}
	stats := Stats{Elements: c.ExactSize()}
	buckets, err := partition(ctx, c, compare, o)
	stats.Buckets = len(buckets)
	if err != nil {
		closeAll(buckets)
		return stats, err
	}
	out := c.Derive(collection.ChunkSize(o.chunkSize))
	merge := mergeLinear[T]
	if o.heap {
		merge = mergeHeap[T]
	}
	err = merge(ctx, buckets, compare, out)
	if closeErr := closeAll(buckets); err == nil {
		err = closeErr
	}
	if err != nil {
		if closeErr := out.Close(); closeErr != nil {
			log.Error.Printf("sortio: close output: %v", closeErr)
		}
		return stats, err
	}
	stats.Bytes = out.Stats().StoredBytes
	if err := c.Adopt(out); err != nil {
		return stats, err
	}
	log.Debug.Printf("sortio: sorted %d elements in %d buckets into %s (bucket size %d, chunk size %d)",
		stats.Elements, stats.Buckets, data.Size(stats.Bytes), o.bucketSize, o.chunkSize)
	return stats, nil
}

// An item is an element in a bucket under construction. Items are
// ordered by value, then by arrival, so that equal values are kept
// (and kept in insertion order).
type item[T any] struct {
	v   T
	seq uint64
}

// partition scans c once, producing sorted buckets of at most
// o.bucketSize elements each. Once c has been consumed, its contents
// are released. The returned buckets are owned by the caller, also
// on error.
func partition[T any](ctx context.Context, c *collection.Collection[T], compare func(a, b T) int, o options) (buckets []*collection.Collection[T], err error) {
	it, err := c.Iterator()
	if err != nil {
		return nil, err
	}
	defer func() {
		if it != nil {
			it.Close()
		}
	}()
	tree := btree.NewG[item[T]](btreeDegree, func(a, b item[T]) bool {
		if c := compare(a.v, b.v); c != 0 {
			return c < 0
		}
		return a.seq < b.seq
	})
	spill := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := c.Derive(collection.ChunkSize(o.chunkSize))
		buckets = append(buckets, b)
		var err error
		tree.Ascend(func(x item[T]) bool {
			err = b.Add(x.v)
			return err == nil
		})
		tree.Clear(true)
		return err
	}
	var (
		v   T
		seq uint64
	)
	for it.Scan(&v) {
		tree.ReplaceOrInsert(item[T]{v, seq})
		seq++
		if tree.Len() == o.bucketSize {
			if err := spill(); err != nil {
				return buckets, err
			}
		}
	}
	if err := it.Err(); err != nil {
		return buckets, err
	}
	if tree.Len() > 0 {
		if err := spill(); err != nil {
			return buckets, err
		}
	}
	err = it.Close()
	it = nil
	if err != nil {
		return buckets, err
	}
	return buckets, c.Clear()
}

func closeAll[T any](buckets []*collection.Collection[T]) error {
	var err error
	for _, b := range buckets {
		if closeErr := b.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// IsSorted reports whether the elements of c are in non-decreasing
// order according to compare.
func IsSorted[T any](c *collection.Collection[T], compare func(a, b T) int) (sorted bool, err error) {
	it, err := c.Iterator()
	if err != nil {
		return false, err
	}
	defer func() {
		if closeErr := it.Close(); err == nil {
			err = closeErr
		}
	}()
	var prev, v T
	for first := true; it.Scan(&v); first = false {
		if !first && compare(prev, v) > 0 {
			return false, nil
		}
		prev = v
	}
	return true, it.Err()
}
