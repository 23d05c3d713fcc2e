// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
	Package spill implements disk-backed collections whose contents
	are held on disk rather than in memory. Elements are buffered in
	memory in fixed-size chunks; each full chunk is serialized,
	compressed, and appended to a private scratch file. Iteration
	streams chunks back from that file, so memory use is bounded by
	the chunk size regardless of the number of elements.

	Collections support appending, iteration, filtering (retain and
	remove), emptying, and an external sort, which partitions the
	collection into sorted buckets and merges them.

	The implementation is split across several packages:

	Package chunkio provides chunk codecs, compression, record
	framing, and the append-only stores backing collections.

	Package collection provides Collection, which buffers and spills
	elements, and its Iterator.

	Package sortio implements the external sort.

	Package spillconfig integrates collection and sort settings with
	github.com/grailbio/base/config profiles.

	This package provides conveniences for common uses:

		c := spill.New[string]()
		defer c.Close()
		for _, line := range lines {
			if err := c.Add(line); err != nil {
				return err
			}
		}
		if err := spill.Sort(ctx, c); err != nil {
			return err
		}

	Spill files are private to the process and are not meant to be
	read across program versions. Files of stores closed by the
	program are removed immediately; chunkio.Sweep removes any that
	remain, and should be called at program exit.
*/
package spill
