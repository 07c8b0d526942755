// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package buffer

import "errors"

// ErrUnsupported is the error wrapped in the *MapError returned on
// platforms without support for executable anonymous mappings.
var ErrUnsupported = errors.New("buffer: executable mappings are not supported on this platform")

// Executable is a memory mapping in its executable phase.
type Executable struct{}

// Mutable is a memory mapping in its writable phase.
type Mutable struct{}

// NewExecutable returns a *MapError wrapping ErrUnsupported.
func NewExecutable(length, capacity int) (*Executable, error) {
	return nil, &MapError{Op: "map", Err: ErrUnsupported}
}

// NewMutable returns a *MapError wrapping ErrUnsupported.
func NewMutable(length, capacity int) (*Mutable, error) {
	return nil, &MapError{Op: "map", Err: ErrUnsupported}
}

func (b *Executable) MakeMut() (*Mutable, error) {
	return nil, &MapError{Op: "protect_rw", Err: ErrUnsupported}
}

func (b *Mutable) MakeExec() (*Executable, error) {
	return nil, &MapError{Op: "protect_rx", Err: ErrUnsupported}
}

func (b *Executable) Len() int { return 0 }

func (b *Executable) Cap() int { return 0 }

func (b *Executable) Bytes() []byte { return nil }

func (b *Executable) Ptr(off int) uintptr { return 0 }

func (b *Executable) Unmap() error { return nil }

func (b *Mutable) Len() int { return 0 }

func (b *Mutable) SetLen(n int) {}

func (b *Mutable) Cap() int { return 0 }

func (b *Mutable) Bytes() []byte { return nil }

func (b *Mutable) Unmap() error { return nil }
