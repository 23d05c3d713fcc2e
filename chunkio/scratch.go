// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkio

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
)

const (
	filePrefix = "spill-"
	fileSuffix = ".chunks"
)

// A Scratch names the directory in which stores create their files.
// The zero Scratch uses the system's temporary directory.
type Scratch string

// NewScratch creates and returns a new scratch area backed by a
// fresh temporary directory.
func NewScratch(name string) (Scratch, error) {
	dir, err := os.MkdirTemp("", "scratch-"+name+"-")
	if err != nil {
		return "", errors.E(err, "chunkio: create scratch directory")
	}
	return Scratch(dir), nil
}

// Dir returns the directory path of the scratch area.
func (s Scratch) Dir() string {
	if s == "" {
		return os.TempDir()
	}
	return string(s)
}

// create allocates a new, uniquely named file in the scratch area.
func (s Scratch) create() (*os.File, error) {
	path := filepath.Join(s.Dir(), filePrefix+uuid.NewString()+fileSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, errors.E(err, "chunkio: create spill file")
	}
	return f, nil
}

// Files returns the paths of the spill files currently present in
// the scratch area.
func (s Scratch) Files() ([]string, error) {
	return filepath.Glob(filepath.Join(s.Dir(), filePrefix+"*"+fileSuffix))
}

// Cleanup removes the scratch area and everything in it. Cleanup
// refuses to remove the system's temporary directory.
func (s Scratch) Cleanup() error {
	if s == "" {
		return errors.E(errors.Invalid, "chunkio: cannot clean up the default scratch area")
	}
	return os.RemoveAll(string(s))
}
