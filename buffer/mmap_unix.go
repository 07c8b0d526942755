// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package buffer

import (
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

// Executable is a memory mapping in its executable phase. The mapped
// pages are readable and executable; any attempt to write through the
// CPU's data side faults.
type Executable struct {
	mem    mmap.MMap
	length int
}

// Mutable is a memory mapping in its writable phase. The mapped pages
// are readable and writable, and not executable.
type Mutable struct {
	mem    mmap.MMap
	length int
}

// pageCeil rounds n up to a whole number of pages, with a one page
// minimum.
func pageCeil(n int) int {
	page := os.Getpagesize()
	if n < page {
		return page
	}
	return (n + page - 1) &^ (page - 1)
}

// NewExecutable allocates a zero-initialized anonymous mapping of at
// least capacity bytes, rounded up to the page size, and returns it in
// the executable phase with the given live length.
func NewExecutable(length, capacity int) (*Executable, error) {
	mut, err := NewMutable(length, capacity)
	if err != nil {
		return nil, err
	}
	exe, err := mut.MakeExec()
	if err != nil {
		mut.Unmap()
		return nil, err
	}
	return exe, nil
}

// NewMutable is like NewExecutable but returns the mapping in the
// writable phase.
func NewMutable(length, capacity int) (*Mutable, error) {
	mem, err := mmap.MapRegion(nil, pageCeil(capacity), mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, &MapError{Op: "map", Err: err}
	}
	return &Mutable{mem: mem, length: length}, nil
}

// MakeMut flips the mapping to its writable phase in place. The
// Executable must not be used afterwards.
func (b *Executable) MakeMut() (*Mutable, error) {
	if err := unix.Mprotect(b.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return nil, &MapError{Op: "protect_rw", Err: err}
	}
	return &Mutable{mem: b.mem, length: b.length}, nil
}

// MakeExec flips the mapping to its executable phase in place. The
// Mutable must not be used afterwards.
func (b *Mutable) MakeExec() (*Executable, error) {
	if err := unix.Mprotect(b.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return nil, &MapError{Op: "protect_rx", Err: err}
	}
	return &Executable{mem: b.mem, length: b.length}, nil
}

// Len returns the number of live code bytes in the mapping.
func (b *Executable) Len() int { return b.length }

// Cap returns the total size of the mapping.
func (b *Executable) Cap() int { return len(b.mem) }

// Bytes returns the live portion of the mapping. The returned slice
// must only be read.
func (b *Executable) Bytes() []byte { return b.mem[:b.length] }

// Ptr returns the address of the byte at off, suitable for use as an
// entry point into the emitted code.
func (b *Executable) Ptr(off int) uintptr {
	return uintptr(unsafe.Pointer(&b.mem[off]))
}

// Unmap releases the mapping. No slice or pointer derived from the
// mapping may be used afterwards.
func (b *Executable) Unmap() error { return b.mem.Unmap() }

// Len returns the number of live code bytes in the mapping.
func (b *Mutable) Len() int { return b.length }

// SetLen updates the live length after bytes past the previous length
// have been written.
func (b *Mutable) SetLen(n int) { b.length = n }

// Cap returns the total size of the mapping.
func (b *Mutable) Cap() int { return len(b.mem) }

// Bytes returns the whole mapping for writing.
func (b *Mutable) Bytes() []byte { return b.mem }

// Unmap releases the mapping.
func (b *Mutable) Unmap() error { return b.mem.Unmap() }
