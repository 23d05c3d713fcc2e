// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package spillconfig provides spill collection and sort settings
// from a shared configuration. Spillconfig uses the configuration
// mechanism in package github.com/grailbio/base/config, and reads a
// default profile from $HOME/.spill/config.
package spillconfig

import (
	"flag"
	"os"

	"github.com/grailbio/base/config"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/must"
	"github.com/grailbio/spill/chunkio"
	"github.com/grailbio/spill/collection"
	"github.com/grailbio/spill/internal/defaultsize"
	"github.com/grailbio/spill/sortio"
)

// Path determines the location of the spill profile read by Parse.
var Path = os.ExpandEnv("$HOME/.spill/config")

// Config holds collection and sort settings.
type Config struct {
	// Scratch is the directory in which spill files are created. If
	// empty, the system's temporary directory is used.
	Scratch chunkio.Scratch
	// Compression is the chunk compression method.
	Compression chunkio.Compression
	// ChunkSize is the number of elements per chunk.
	ChunkSize int
	// BucketFactor is the number of chunks per sort bucket.
	BucketFactor int
	// HeapMerge selects heap merging of sort buckets.
	HeapMerge bool
}

// Options returns the collection options for the configuration.
func (c *Config) Options() []collection.Option {
	return []collection.Option{
		collection.Scratch(c.Scratch),
		collection.Compression(c.Compression),
		collection.ChunkSize(c.ChunkSize),
	}
}

// SortOptions returns the sort options for the configuration.
func (c *Config) SortOptions() []sortio.Option {
	opts := []sortio.Option{sortio.BucketSize(c.BucketFactor * c.ChunkSize)}
	if c.HeapMerge {
		opts = append(opts, sortio.HeapMerge())
	}
	return opts
}

func init() {
	config.Register("spill", func(inst *config.Constructor) {
		var (
			cfg         Config
			scratch     string
			compression string
		)
		inst.StringVar(&scratch, "scratch", "", "directory for spill files; defaults to the system temporary directory")
		inst.StringVar(&compression, "compression", chunkio.DefaultCompression.String(), "chunk compression: none, zstd, s2, or lz4")
		inst.IntVar(&cfg.ChunkSize, "chunk-size", defaultsize.Chunk, "number of elements per chunk")
		inst.IntVar(&cfg.BucketFactor, "bucket-factor", defaultsize.BucketFactor, "number of chunks per sort bucket")
		inst.BoolVar(&cfg.HeapMerge, "heap-merge", false, "merge sort buckets with a heap")
		inst.Doc = "spill configures disk-backed collections and external sorting"
		inst.New = func() (interface{}, error) {
			if err := cfg.Compression.Set(compression); err != nil {
				return nil, err
			}
			if cfg.ChunkSize < 1 || cfg.BucketFactor < 1 {
				return nil, errors.E(errors.Invalid, "spill: chunk-size and bucket-factor must be positive")
			}
			cfg.Scratch = chunkio.Scratch(scratch)
			return &cfg, nil
		}
	})
}

// Parse registers configuration flags and calls flag.Parse. It reads
// spill configuration from Path defined in this package, returning
// the configuration as modified by any flags provided. Parse panics
// if the configuration is invalid.
func Parse() *Config {
	config.RegisterFlags("", Path)
	flag.Parse()
	must.Nil(config.ProcessFlags())
	var cfg *Config
	config.Must("spill", &cfg)
	return cfg
}
