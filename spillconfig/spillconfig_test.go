// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package spillconfig

import (
	"cmp"
	"context"
	"testing"

	"github.com/grailbio/spill/chunkio"
	"github.com/grailbio/spill/collection"
	"github.com/grailbio/spill/sortio"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestOptions(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "spillconfig")
	defer cleanup()
	cfg := &Config{
		Scratch:      chunkio.Scratch(dir),
		Compression:  chunkio.LZ4,
		ChunkSize:    5,
		BucketFactor: 3,
		HeapMerge:    true,
	}
	c := collection.New[int64](chunkio.Int64Codec{}, cfg.Options()...)
	for i := int64(40); i > 0; i-- {
		assert.NoError(t, c.Add(i))
	}
	expect.EQ(t, c.ChunkSize(), 5)
	stats, err := sortio.SortStats(context.Background(), c, cmp.Compare[int64], cfg.SortOptions()...)
	assert.NoError(t, err)
	// 40 elements in buckets of 15.
	expect.EQ(t, stats.Buckets, 3)
	sorted, err := sortio.IsSorted(c, cmp.Compare[int64])
	assert.NoError(t, err)
	expect.True(t, sorted)
	files, err := cfg.Scratch.Files()
	assert.NoError(t, err)
	expect.EQ(t, len(files), 1)
	assert.NoError(t, c.Close())
}
