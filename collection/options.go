// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package collection

import (
	"github.com/grailbio/spill/chunkio"
	"github.com/grailbio/spill/internal/defaultsize"
)

type options struct {
	chunkSize   int
	scratch     chunkio.Scratch
	compression chunkio.Compression
	registry    *chunkio.Registry
}

func defaultOptions() options {
	return options{
		chunkSize:   defaultsize.Chunk,
		compression: chunkio.DefaultCompression,
	}
}

// An Option configures a collection.
type Option func(*options)

// ChunkSize sets the number of elements (or, with AddWeighted, the
// accumulated weight) buffered in memory before they are spilled to
// disk as one chunk. Chunk size is purely a performance knob: it
// does not change the contents or order of a collection.
func ChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

// Scratch sets the scratch area in which the collection's file is
// created.
func Scratch(s chunkio.Scratch) Option {
	return func(o *options) { o.scratch = s }
}

// Compression sets the compression used for spilled chunks.
func Compression(c chunkio.Compression) Option {
	return func(o *options) { o.compression = c }
}

// Registry sets the registry that tracks the collection's file.
// By default, chunkio.Outstanding is used.
func Registry(r *chunkio.Registry) Option {
	return func(o *options) { o.registry = r }
}
