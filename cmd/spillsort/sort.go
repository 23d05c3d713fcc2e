// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/spill/chunkio"
	"github.com/grailbio/spill/collection"
	"github.com/grailbio/spill/sortio"
	"github.com/grailbio/spill/spillconfig"
)

// checkInterval is the number of lines read or written between
// checks for cancellation.
const checkInterval = 1 << 12

// sortFile sorts the lines of the file at path in, writing them to
// the file at path out. If unique is set, only the first of each run
// of equal lines is written.
func sortFile(ctx context.Context, cfg *spillconfig.Config, in, out string, unique bool) (stats sortio.Stats, err error) {
	c := collection.New[string](chunkio.StringCodec{}, cfg.Options()...)
	defer func() {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}()
	if err := readLines(ctx, in, c); err != nil {
		return stats, err
	}
	stats, err = sortio.SortStats(ctx, c, strings.Compare, cfg.SortOptions()...)
	if err != nil {
		return stats, err
	}
	return stats, writeLines(ctx, out, c, unique)
}

func readLines(ctx context.Context, path string, c *collection.Collection[string]) (err error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(ctx); err == nil {
			err = closeErr
		}
	}()
	r := bufio.NewReader(f.Reader(ctx))
	for n := 0; ; n++ {
		if n%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line, err := r.ReadString('\n')
		if line != "" {
			if err := c.Add(strings.TrimSuffix(line, "\n")); err != nil {
				return err
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func writeLines(ctx context.Context, path string, c *collection.Collection[string], unique bool) (err error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(ctx); err == nil {
			err = closeErr
		}
	}()
	it, err := c.Iterator()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := it.Close(); err == nil {
			err = closeErr
		}
	}()
	w := bufio.NewWriter(f.Writer(ctx))
	var (
		line, prev string
		first      = true
	)
	for n := 0; it.Scan(&line); n++ {
		if n%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if unique && !first && line == prev {
			continue
		}
		first = false
		prev = line
		if _, err := w.WriteString(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	return w.Flush()
}
