// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"sync"
	"sync/atomic"

	"github.com/go-dynasm/dynasm/buffer"
)

// initialMapSize is the capacity of a fresh assembler's executable
// mapping, before any growth.
const initialMapSize = 4096

// unbound marks a dynamic label slot that has been allocated but not
// yet bound to an offset.
const unbound = AssemblyOffset(-1)

// sharedBuffer is the single cross-thread contact surface: the current
// executable mapping behind a readers-writer lock, plus a count of the
// Executor handles that may still lock it.
type sharedBuffer struct {
	mu      sync.RWMutex
	buf     *buffer.Executable
	readers int64
}

// Assembler accumulates emitted instruction bytes and label
// references, and publishes the assembled result into an executable
// memory mapping. Emitted code can be executed through Executor
// handles on other threads while assembly continues.
//
// The Assembler itself is single-writer: all emit, label, commit,
// alter and modifier operations must be serialized by the caller. Only
// the executable mapping is shared across threads, and only through
// the Executor surface.
//
// Methods other than NewAssembler and Finalize report contract
// violations (duplicate labels, unresolved references, invalid patch
// sizes) by panicking with the typed error values in this package; a
// violated assembler must not be used further.
type Assembler struct {
	// shared executable mapping, handed out to Executors.
	shared *sharedBuffer
	// capacity of the mapping, kept outside the lock.
	mapLen int

	// absolute offset at which ops[0] logically lives.
	asmOff AssemblyOffset
	// staging buffer holding not yet committed code.
	ops []byte

	globalDefs   map[string]AssemblyOffset
	globalRelocs []globalPatch

	dynDefs   []AssemblyOffset
	dynRelocs []dynamicPatch

	localDefs map[string]AssemblyOffset
	// forward references waiting for the next definition of a name.
	localRelocs map[string][]patchLoc
}

var _ LabelEmitter = (*Assembler)(nil)

// NewAssembler creates an Assembler with the default initial mapping
// capacity. It fails only if the executable mapping could not be
// allocated.
func NewAssembler() (*Assembler, error) {
	return NewAssemblerSized(initialMapSize)
}

// NewAssemblerSized creates an Assembler whose initial mapping holds
// at least initialCap bytes, for callers that know the size of the
// code they are about to emit.
func NewAssemblerSized(initialCap int) (*Assembler, error) {
	buf, err := buffer.NewExecutable(0, initialCap)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		shared:      &sharedBuffer{buf: buf},
		mapLen:      buf.Cap(),
		globalDefs:  make(map[string]AssemblyOffset),
		localDefs:   make(map[string]AssemblyOffset),
		localRelocs: make(map[string][]patchLoc),
	}, nil
}

// Offset returns the absolute offset of the next byte to be emitted.
// Offsets are measured from the start of the executable mapping, not
// the staging buffer, so they stay valid after the staged bytes are
// published.
func (a *Assembler) Offset() AssemblyOffset {
	return AssemblyOffset(len(a.ops)) + a.asmOff
}

// PushByte appends a single byte to the staging buffer.
func (a *Assembler) PushByte(b byte) {
	a.ops = append(a.ops, b)
}

// Push appends a byte sequence to the staging buffer.
func (a *Assembler) Push(bs []byte) {
	a.ops = append(a.ops, bs...)
}

// Align pads the staging buffer with NOPs until the offset is a
// multiple of n.
func (a *Assembler) Align(n int) {
	if rem := int(a.Offset()) % n; rem != 0 {
		for i := rem; i < n; i++ {
			a.PushByte(nop)
		}
	}
}

// NewDynamicLabel allocates a fresh, unbound dynamic label.
func (a *Assembler) NewDynamicLabel() DynamicLabel {
	id := DynamicLabel(len(a.dynDefs))
	a.dynDefs = append(a.dynDefs, unbound)
	return id
}

// GlobalLabel defines name at the current offset.
func (a *Assembler) GlobalLabel(name string) {
	if _, dup := a.globalDefs[name]; dup {
		panic(&DuplicateLabelError{Label: name})
	}
	a.globalDefs[name] = a.Offset()
}

// GlobalReloc records a displacement field of the given size ending at
// the current offset, targeting the global label name.
func (a *Assembler) GlobalReloc(name string, size uint8) {
	a.globalRelocs = append(a.globalRelocs, globalPatch{patchLoc{a.Offset(), size}, name})
}

// DynamicLabel binds id to the current offset.
func (a *Assembler) DynamicLabel(id DynamicLabel) {
	if int(id) >= len(a.dynDefs) {
		panic(&UnknownLabelError{Label: id.String()})
	}
	if a.dynDefs[id] != unbound {
		panic(&DuplicateLabelError{Label: id.String()})
	}
	a.dynDefs[id] = a.Offset()
}

// DynamicReloc records a displacement field of the given size ending
// at the current offset, targeting the dynamic label id.
func (a *Assembler) DynamicReloc(id DynamicLabel, size uint8) {
	a.dynRelocs = append(a.dynRelocs, dynamicPatch{patchLoc{a.Offset(), size}, id})
}

// LocalLabel defines name at the current offset. Forward references
// queued for name are patched to this definition and dropped; the
// definition then becomes the target for subsequent backward
// references until the name is redefined.
func (a *Assembler) LocalLabel(name string) {
	off := a.Offset()
	for _, loc := range a.localRelocs[name] {
		a.patch(loc, off)
	}
	delete(a.localRelocs, name)
	a.localDefs[name] = off
}

// ForwardReloc records a displacement field targeting the next
// definition of the local label name.
func (a *Assembler) ForwardReloc(name string, size uint8) {
	a.localRelocs[name] = append(a.localRelocs[name], patchLoc{a.Offset(), size})
}

// BackwardReloc patches a displacement field ending at the current
// offset with the most recent definition of the local label name.
func (a *Assembler) BackwardReloc(name string, size uint8) {
	target, ok := a.localDefs[name]
	if !ok {
		panic(&UnknownLabelError{Label: name})
	}
	a.patch(patchLoc{a.Offset(), size}, target)
}

// patch resolves loc against the staging buffer.
func (a *Assembler) patch(loc patchLoc, target AssemblyOffset) {
	loc.patch(a.ops, a.asmOff, target)
}

// encodeRelocs drains the global and dynamic relocation tables through
// patch, and verifies that no forward local reference is left dangling.
// Every pending reference must resolve; an unknown label is fatal.
func (a *Assembler) encodeRelocs(patch func(patchLoc, AssemblyOffset)) {
	relocs := a.globalRelocs
	a.globalRelocs = nil
	for _, r := range relocs {
		target, ok := a.globalDefs[r.name]
		if !ok {
			panic(&UnknownLabelError{Label: r.name})
		}
		patch(r.loc, target)
	}

	dyn := a.dynRelocs
	a.dynRelocs = nil
	for _, r := range dyn {
		if int(r.id) >= len(a.dynDefs) || a.dynDefs[r.id] == unbound {
			panic(&UnknownLabelError{Label: r.id.String()})
		}
		patch(r.loc, a.dynDefs[r.id])
	}

	for name := range a.localRelocs {
		panic(&UnknownLabelError{Label: name})
	}
}

// Commit publishes the staged bytes into the executable mapping,
// resolving all pending global and dynamic relocations first. If the
// staged code still fits the mapping it is written in place under a
// W^X flip; otherwise the mapping is grown and replaced. Either path
// blocks until all Executor reads in progress have finished. After
// Commit the staging buffer is empty and committing again is a no-op.
func (a *Assembler) Commit() {
	bufStart := a.asmOff
	bufEnd := a.Offset()
	if bufStart == bufEnd {
		return
	}
	a.encodeRelocs(a.patch)

	if int(bufEnd) > a.mapLen {
		a.growAndPublish(bufStart, bufEnd)
	} else {
		a.publishInPlace(bufStart, bufEnd)
	}

	a.ops = a.ops[:0]
	a.asmOff = bufEnd
}

// publishInPlace copies the staged bytes into [bufStart, bufEnd) of
// the current mapping, flipping it writable for the duration. The
// executable protection is restored on every exit path before the
// exclusive lock is released.
func (a *Assembler) publishInPlace(bufStart, bufEnd AssemblyOffset) {
	a.shared.mu.Lock()
	defer a.shared.mu.Unlock()

	mut, err := a.shared.buf.MakeMut()
	if err != nil {
		panic(err)
	}
	defer func() {
		exe, err := mut.MakeExec()
		if err != nil {
			// The mapping cannot be republished as executable; there
			// is no consistent state to recover to.
			panic(err)
		}
		a.shared.buf = exe
	}()

	copy(mut.Bytes()[bufStart:bufEnd], a.ops)
	if int(bufEnd) > mut.Len() {
		mut.SetLen(int(bufEnd))
	}
	logger.Printf("commit: published [%d, %d) in place", bufStart, bufEnd)
}

// growAndPublish allocates a mapping of capacity max(bufEnd, 2*cap),
// fills it from the old mapping and the staging buffer, and installs
// it as the shared mapping. The old mapping is unmapped under the
// exclusive lock, when no reader can still be inside it.
func (a *Assembler) growAndPublish(bufStart, bufEnd AssemblyOffset) {
	mapLen := a.mapLen * 2
	if int(bufEnd) > mapLen {
		mapLen = int(bufEnd)
	}
	mut, err := buffer.NewMutable(int(bufEnd), mapLen)
	if err != nil {
		panic(err)
	}
	a.mapLen = mut.Cap()

	a.shared.mu.Lock()
	defer a.shared.mu.Unlock()

	copy(mut.Bytes()[:bufStart], a.shared.buf.Bytes())
	copy(mut.Bytes()[bufStart:bufEnd], a.ops)

	exe, err := mut.MakeExec()
	if err != nil {
		panic(err)
	}
	old := a.shared.buf
	a.shared.buf = exe
	old.Unmap()
	logger.Printf("commit: grew mapping to %d bytes, published [0, %d)", a.mapLen, bufEnd)
}

// Alter commits all pending code, then locks the executable mapping,
// flips it writable and calls f with a CommittedModifier positioned at
// offset 0. When f returns, all relocations recorded during the
// alteration are resolved against the writable mapping, the mapping is
// flipped back to executable and the assembling offset is restored.
// The executable flip-back happens even if f panics. The modifier is
// only valid during the call.
func (a *Assembler) Alter(f func(m *CommittedModifier)) {
	a.Commit()
	saved := a.asmOff
	a.asmOff = 0
	defer func() { a.asmOff = saved }()

	a.shared.mu.Lock()
	defer a.shared.mu.Unlock()

	mut, err := a.shared.buf.MakeMut()
	if err != nil {
		panic(err)
	}
	defer func() {
		exe, err := mut.MakeExec()
		if err != nil {
			panic(err)
		}
		a.shared.buf = exe
	}()

	logger.Printf("alter: mapping writable, %d live bytes", mut.Len())
	m := &CommittedModifier{asm: a, buf: mut}
	f(m)
	m.encodeRelocs()
	m.asm, m.buf = nil, nil
}

// AlterUncommitted calls f with an UncommittedModifier positioned at
// the start of the staging buffer, allowing already emitted but not
// yet committed bytes to be rewritten. The executable mapping is not
// touched and no lock is taken. The modifier carries no label
// operations; relocations recorded earlier stay queued untouched.
func (a *Assembler) AlterUncommitted(f func(m *UncommittedModifier)) {
	f(&UncommittedModifier{asm: a, off: a.asmOff})
}

// Finalize commits all pending code and extracts the executable
// mapping, consuming the Assembler. If any Executor handle still
// exists it fails with ErrStillBorrowed and the Assembler stays fully
// usable. After a successful Finalize the Assembler must not be used.
func (a *Assembler) Finalize() (*buffer.Executable, error) {
	a.Commit()
	if atomic.LoadInt64(&a.shared.readers) != 0 {
		return nil, ErrStillBorrowed
	}
	// No Executor exists and none can appear: Reader is serialized
	// with this call and cloning requires a live handle.
	a.shared.mu.Lock()
	buf := a.shared.buf
	a.shared.buf = nil
	a.shared.mu.Unlock()
	logger.Printf("finalize: extracted mapping, %d live bytes", buf.Len())
	return buf, nil
}

// Reader returns a new Executor handle over the shared mapping. The
// handle must be closed when no longer needed, or Finalize will keep
// failing with ErrStillBorrowed.
func (a *Assembler) Reader() *Executor {
	atomic.AddInt64(&a.shared.readers, 1)
	return &Executor{shared: a.shared}
}
