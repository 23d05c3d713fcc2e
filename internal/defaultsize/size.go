// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package defaultsize holds the flag-configurable default sizes used
// by collections and the external sorter.
package defaultsize

import "flag"

var (
	// Chunk is the default chunk size (number of elements) of a
	// collection.
	Chunk int
	// BucketFactor is the default number of chunks that make up one
	// sort bucket.
	BucketFactor int
)

func init() {
	flag.IntVar(&Chunk, "spill-default-chunk-size", 1024,
		"default number of elements per spilled chunk")
	flag.IntVar(&BucketFactor, "spill-default-bucket-chunks", 10,
		"default number of chunks per external sort bucket")
}
