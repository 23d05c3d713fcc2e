// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkio

import (
	"sort"
	"sync"

	"github.com/grailbio/base/log"
)

// A resource is a scratch file owned by a store.
type resource interface {
	Path() string
	// sweep closes the resource, if needed, and removes its file
	// regardless of any open readers.
	sweep() error
}

// A Registry keeps track of the stores whose files have not yet been
// removed. Registries exist so that scratch files that were not
// closed by their owners can be removed, on a best effort basis,
// before the process exits. They are not a substitute for closing
// stores.
type Registry struct {
	mu        sync.Mutex
	resources map[resource]struct{}
}

// NewRegistry returns a new, empty registry.
func NewRegistry() *Registry {
	return &Registry{resources: make(map[resource]struct{})}
}

// Outstanding is the process-wide registry, used by stores
// unless another registry is provided.
var Outstanding = NewRegistry()

func (r *Registry) add(res resource) {
	r.mu.Lock()
	r.resources[res] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) remove(res resource) {
	r.mu.Lock()
	delete(r.resources, res)
	r.mu.Unlock()
}

// Len returns the number of outstanding files in the registry.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resources)
}

// Paths returns the sorted paths of the registry's outstanding
// files.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	paths := make([]string, 0, len(r.resources))
	for res := range r.resources {
		paths = append(paths, res.Path())
	}
	r.mu.Unlock()
	sort.Strings(paths)
	return paths
}

// Sweep closes every outstanding store and removes its file. Sweep
// returns the first error encountered; subsequent errors are
// logged.
func (r *Registry) Sweep() error {
	r.mu.Lock()
	list := make([]resource, 0, len(r.resources))
	for res := range r.resources {
		list = append(list, res)
	}
	r.mu.Unlock()
	var err error
	for _, res := range list {
		if sweepErr := res.sweep(); sweepErr != nil {
			if err == nil {
				err = sweepErr
			} else {
				log.Error.Printf("chunkio: sweep %s: %v", res.Path(), sweepErr)
			}
		}
	}
	if len(list) > 0 {
		log.Debug.Printf("chunkio: swept %d outstanding spill files", len(list))
	}
	return err
}

// Sweep sweeps the process-wide registry. Programs should defer
// Sweep in main as a last-resort leak mitigation.
func Sweep() error {
	return Outstanding.Sweep()
}
