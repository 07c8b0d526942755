// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package buffer manages the executable memory mapping that assembled
// code is published into. A mapping is always in exactly one of two
// states: Executable (readable and executable, never writable) or
// Mutable (readable and writable, never executable). MakeMut and
// MakeExec flip a mapping between the two states in place, without
// moving the backing address.
package buffer

import "fmt"

// MapError is returned when the platform could not allocate or
// re-protect a mapping.
type MapError struct {
	Op  string
	Err error
}

func (e *MapError) Error() string { return fmt.Sprintf("buffer: %s: %v", e.Op, e.Err) }

func (e *MapError) Unwrap() error { return e.Err }
