// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "sync/atomic"

// Executor is a cloneable read handle over the published executable
// mapping, obtained from (*Assembler).Reader. Executors are safe to
// use from other goroutines than the one driving the Assembler.
//
// To run published code, acquire the mapping with Lock, resolve an
// entry point with Ptr, and release the guard with Unlock when the
// call has returned. While any guard is held, commits and alterations
// block; while a commit or alteration is in progress, Lock blocks.
type Executor struct {
	shared *sharedBuffer
}

// Clone returns another handle over the same mapping.
func (e *Executor) Clone() *Executor {
	atomic.AddInt64(&e.shared.readers, 1)
	return &Executor{shared: e.shared}
}

// Close releases the handle. A closed handle and its guards must not
// be used again. Finalize succeeds only after every handle has been
// closed.
func (e *Executor) Close() {
	atomic.AddInt64(&e.shared.readers, -1)
}

// Lock acquires shared access to the published code and returns a
// guard over it. Multiple guards can be held concurrently, from this
// or cloned handles.
func (e *Executor) Lock() *LockedBuffer {
	e.shared.mu.RLock()
	return &LockedBuffer{shared: e.shared}
}

// LockedBuffer is a read-locked view of the published code. It stays
// valid, and blocks all writers, until Unlock is called.
type LockedBuffer struct {
	shared *sharedBuffer
}

// Bytes returns the published code, [0, len) of the mapping. The
// returned slice must only be read and not retained past Unlock.
func (b *LockedBuffer) Bytes() []byte {
	return b.shared.buf.Bytes()
}

// Ptr returns the address of the byte at off. Callers cast it to a
// function pointer of their chosen signature to invoke the code at
// off. The address must not be used past Unlock.
func (b *LockedBuffer) Ptr(off AssemblyOffset) uintptr {
	return b.shared.buf.Ptr(int(off))
}

// Unlock releases the guard.
func (b *LockedBuffer) Unlock() {
	b.shared.mu.RUnlock()
}
