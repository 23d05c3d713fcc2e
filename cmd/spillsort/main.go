// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Command spillsort sorts the lines of large files using a bounded
// amount of memory. Lines are spilled to disk in compressed chunks,
// sorted in buckets, and merged.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
	"github.com/grailbio/spill/chunkio"
	"github.com/grailbio/spill/spillconfig"
	"golang.org/x/sync/errgroup"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `usage: spillsort [-o output] [-j n] [-u] input...

Command spillsort sorts the lines of each input. Inputs may be local
paths or any path supported by github.com/grailbio/base/file. Each
sorted input is written to <input>.sorted, unless -o is given, in
which case a single input is sorted to the given output.

Collection and sort settings are read from the spill profile, and
may be overridden with -set.
`)
		flag.PrintDefaults()
		os.Exit(2)
	}
	output := flag.String("o", "", "output path; only valid with a single input")
	parallel := flag.Int("j", 1, "number of inputs to sort concurrently")
	unique := flag.Bool("u", false, "drop duplicate lines")
	cfg := spillconfig.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
	}
	if *output != "" && flag.NArg() > 1 {
		log.Fatal("spillsort: -o requires a single input")
	}
	if *parallel < 1 {
		log.Fatal("spillsort: -j must be positive")
	}

	// On SIGINT or SIGTERM, workers are canceled; spill files are
	// swept once they have returned. A second signal terminates the
	// process immediately.
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		stop()
	}()

	g, ctx := errgroup.WithContext(sigCtx)
	g.SetLimit(*parallel)
	for _, in := range flag.Args() {
		in, out := in, *output
		if out == "" {
			out = in + ".sorted"
		}
		g.Go(func() error {
			stats, err := sortFile(ctx, cfg, in, out, *unique)
			if err != nil {
				return fmt.Errorf("%s: %v", in, err)
			}
			log.Printf("spillsort: %s: sorted %d lines (%d buckets) to %s", in, stats.Elements, stats.Buckets, out)
			return nil
		})
	}
	err := g.Wait()
	if sigCtx.Err() != nil {
		log.Printf("spillsort: interrupted: removing %d spill files", chunkio.Outstanding.Len())
	}
	if sweepErr := chunkio.Sweep(); sweepErr != nil {
		log.Error.Printf("spillsort: sweep: %v", sweepErr)
	}
	must.Nil(err)
}
