// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sortio

import (
	"container/heap"
	"context"

	"github.com/grailbio/spill/collection"
)

// A head is the current element of a bucket being merged.
type head[T any] struct {
	it    *collection.Iterator[T]
	index int
	v     T
	ok    bool
}

// advance moves the head to the bucket's next element. When the
// bucket is exhausted, ok is false.
func (h *head[T]) advance() error {
	if h.ok = h.it.Scan(&h.v); !h.ok {
		return h.it.Err()
	}
	return nil
}

// openHeads opens an iterator on each bucket and positions it at the
// bucket's first element. The returned heads must be closed with
// closeHeads, also on error.
func openHeads[T any](buckets []*collection.Collection[T]) ([]*head[T], error) {
	heads := make([]*head[T], 0, len(buckets))
	for i, b := range buckets {
		it, err := b.Iterator()
		if err != nil {
			return heads, err
		}
		h := &head[T]{it: it, index: i}
		heads = append(heads, h)
		if err := h.advance(); err != nil {
			return heads, err
		}
	}
	return heads, nil
}

func closeHeads[T any](heads []*head[T], errp *error) {
	for _, h := range heads {
		if err := h.it.Close(); err != nil && *errp == nil {
			*errp = err
		}
	}
}

// mergeLinear merges the sorted buckets into out. Each round finds
// the minimum head by scanning bucket heads in order; every head
// equal to the minimum is then emitted, in bucket order, and
// advanced.
func mergeLinear[T any](ctx context.Context, buckets []*collection.Collection[T], compare func(a, b T) int, out *collection.Collection[T]) (err error) {
	heads, err := openHeads(buckets)
	defer closeHeads(heads, &err)
	if err != nil {
		return err
	}
	chunkSize := uint64(out.ChunkSize())
	for n := uint64(0); ; {
		min := -1
		for i, h := range heads {
			if h.ok && (min < 0 || compare(h.v, heads[min].v) < 0) {
				min = i
			}
		}
		if min < 0 {
			return nil
		}
		v := heads[min].v
		for _, h := range heads[min:] {
			if !h.ok || compare(h.v, v) != 0 {
				continue
			}
			if err := out.Add(h.v); err != nil {
				return err
			}
			if err := h.advance(); err != nil {
				return err
			}
			if n++; n%chunkSize == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
		}
	}
}

// headHeap is a heap of bucket heads, ordered by value and then by
// bucket index.
type headHeap[T any] struct {
	heads   []*head[T]
	compare func(a, b T) int
}

func (h *headHeap[T]) Len() int { return len(h.heads) }
func (h *headHeap[T]) Less(i, j int) bool {
	if c := h.compare(h.heads[i].v, h.heads[j].v); c != 0 {
		return c < 0
	}
	return h.heads[i].index < h.heads[j].index
}
func (h *headHeap[T]) Swap(i, j int) { h.heads[i], h.heads[j] = h.heads[j], h.heads[i] }
func (h *headHeap[T]) Push(x interface{}) {
	h.heads = append(h.heads, x.(*head[T]))
}
func (h *headHeap[T]) Pop() interface{} {
	n := len(h.heads)
	x := h.heads[n-1]
	h.heads = h.heads[:n-1]
	return x
}

// mergeHeap merges the sorted buckets into out, producing output
// identical to mergeLinear. Heads equal to the minimum are popped
// together; ties are broken by bucket index, so they are emitted in
// bucket order.
func mergeHeap[T any](ctx context.Context, buckets []*collection.Collection[T], compare func(a, b T) int, out *collection.Collection[T]) (err error) {
	heads, err := openHeads(buckets)
	defer closeHeads(heads, &err)
	if err != nil {
		return err
	}
	h := &headHeap[T]{compare: compare}
	for _, x := range heads {
		if x.ok {
			h.heads = append(h.heads, x)
		}
	}
	heap.Init(h)
	var (
		round     []*head[T]
		chunkSize = uint64(out.ChunkSize())
		n         uint64
	)
	for h.Len() > 0 {
		round = append(round[:0], heap.Pop(h).(*head[T]))
		for h.Len() > 0 && compare(h.heads[0].v, round[0].v) == 0 {
			round = append(round, heap.Pop(h).(*head[T]))
		}
		for _, x := range round {
			if err := out.Add(x.v); err != nil {
				return err
			}
			if err := x.advance(); err != nil {
				return err
			}
			if x.ok {
				heap.Push(h, x)
			}
			if n++; n%chunkSize == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
