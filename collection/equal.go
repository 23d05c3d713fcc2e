// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package collection

// Contains reports whether c contains v. Contains performs a linear
// scan of c.
func Contains[T comparable](c *Collection[T], v T) (bool, error) {
	return c.ContainsFunc(func(w T) bool { return w == v })
}

// RetainAll removes from c every element that is not contained in
// other. Membership is tested by a linear scan of other for each
// element of c.
func RetainAll[T comparable](c, other *Collection[T]) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := other.check(); err != nil {
		return err
	}
	if other.ExactSize() == 0 {
		return c.Clear()
	}
	if other == c {
		return nil
	}
	return c.rebuild(func(v T) (bool, error) { return Contains(other, v) })
}

// RemoveAll removes from c every element that is contained in other.
// Membership is tested by a linear scan of other for each element of
// c.
func RemoveAll[T comparable](c, other *Collection[T]) error {
	if err := c.check(); err != nil {
		return err
	}
	if other == c {
		return c.Clear()
	}
	if err := other.check(); err != nil {
		return err
	}
	return c.rebuild(func(v T) (bool, error) {
		ok, err := Contains(other, v)
		return !ok, err
	})
}
