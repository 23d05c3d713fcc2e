// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package collection

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestList(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()
	l := NewList(e.ints(2))
	assert.NoError(t, l.AddSlice(10, 20, 30, 20))

	v, err := l.Get(2)
	assert.NoError(t, err)
	expect.EQ(t, v, int64(30))

	old, err := l.Set(0, 11)
	assert.NoError(t, err)
	expect.EQ(t, old, int64(10))
	expect.EQ(t, contents(t, l.Collection), []int64{11, 20, 30, 20})

	assert.NoError(t, l.Insert(1, 15))
	assert.NoError(t, l.Insert(l.ExactSize(), 40))
	expect.EQ(t, contents(t, l.Collection), []int64{11, 15, 20, 30, 20, 40})

	old, err = l.RemoveAt(3)
	assert.NoError(t, err)
	expect.EQ(t, old, int64(30))
	expect.EQ(t, contents(t, l.Collection), []int64{11, 15, 20, 20, 40})
	expect.EQ(t, l.Size(), 5)

	is20 := func(v int64) bool { return v == 20 }
	i, err := l.IndexFunc(is20)
	assert.NoError(t, err)
	expect.EQ(t, i, int64(2))
	i, err = l.LastIndexFunc(is20)
	assert.NoError(t, err)
	expect.EQ(t, i, int64(3))
	i, err = l.IndexFunc(func(v int64) bool { return v > 100 })
	assert.NoError(t, err)
	expect.EQ(t, i, int64(-1))

	assert.NoError(t, l.Close())
	e.checkReleased(t)
}

func TestListOutOfRange(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()
	l := NewList(e.ints(2))
	defer l.Close()
	assert.NoError(t, l.AddSlice(1, 2))
	if _, err := l.Get(2); err != ErrIndexOutOfRange {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
	if _, err := l.Set(5, 0); err != ErrIndexOutOfRange {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
	if err := l.Insert(3, 0); err != ErrIndexOutOfRange {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
	if _, err := l.RemoveAt(2); !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v, want invalid", err)
	}
	expect.EQ(t, contents(t, l.Collection), []int64{1, 2})
}
