// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "github.com/go-dynasm/dynasm/buffer"

// CommittedModifier is a cursor over the executable mapping during an
// Alter call, while the mapping is in its writable phase. Bytes are
// written directly into the mapping at the modification offset, which
// starts at 0 and can be repositioned with Goto. The full label API is
// available; relocations recorded through it are resolved against the
// mapping when Alter returns.
//
// A CommittedModifier is only valid inside the Alter callback that
// received it.
type CommittedModifier struct {
	asm *Assembler
	buf *buffer.Mutable
}

var _ LabelEmitter = (*CommittedModifier)(nil)

// Offset returns the current modification offset.
func (m *CommittedModifier) Offset() AssemblyOffset {
	return m.asm.Offset()
}

// PushByte overwrites the byte at the modification offset and advances
// it.
func (m *CommittedModifier) PushByte(b byte) {
	m.buf.Bytes()[m.asm.asmOff] = b
	m.asm.asmOff++
}

// Push overwrites a byte sequence starting at the modification offset.
func (m *CommittedModifier) Push(bs []byte) {
	for _, b := range bs {
		m.PushByte(b)
	}
}

// Goto repositions the modification offset.
func (m *CommittedModifier) Goto(off AssemblyOffset) {
	m.asm.asmOff = off
}

// Check panics if the modification offset has moved past off. It is
// used by upstream generators to assert their size accounting.
func (m *CommittedModifier) Check(off AssemblyOffset) {
	if m.asm.asmOff > off {
		panic(&OffsetCheckError{Offset: m.asm.asmOff, Checked: off})
	}
}

// CheckExact panics unless the modification offset is exactly off.
func (m *CommittedModifier) CheckExact(off AssemblyOffset) {
	if m.asm.asmOff != off {
		panic(&OffsetCheckError{Offset: m.asm.asmOff, Checked: off, Exact: true})
	}
}

// Align overwrites with NOPs until the modification offset is a
// multiple of n.
func (m *CommittedModifier) Align(n int) {
	for int(m.asm.asmOff)%n != 0 {
		m.PushByte(nop)
	}
}

// GlobalLabel defines name at the modification offset.
func (m *CommittedModifier) GlobalLabel(name string) {
	m.asm.GlobalLabel(name)
}

// GlobalReloc records a displacement field ending at the modification
// offset, targeting name. It is resolved when Alter returns.
func (m *CommittedModifier) GlobalReloc(name string, size uint8) {
	m.asm.GlobalReloc(name, size)
}

// DynamicLabel binds id to the modification offset.
func (m *CommittedModifier) DynamicLabel(id DynamicLabel) {
	m.asm.DynamicLabel(id)
}

// DynamicReloc records a displacement field ending at the modification
// offset, targeting id. It is resolved when Alter returns.
func (m *CommittedModifier) DynamicReloc(id DynamicLabel, size uint8) {
	m.asm.DynamicReloc(id, size)
}

// LocalLabel defines name at the modification offset. Queued forward
// references are patched in the writable mapping, not the (empty)
// staging buffer.
func (m *CommittedModifier) LocalLabel(name string) {
	off := m.asm.Offset()
	for _, loc := range m.asm.localRelocs[name] {
		m.patch(loc, off)
	}
	delete(m.asm.localRelocs, name)
	m.asm.localDefs[name] = off
}

// ForwardReloc records a displacement field targeting the next
// definition of the local label name.
func (m *CommittedModifier) ForwardReloc(name string, size uint8) {
	m.asm.ForwardReloc(name, size)
}

// BackwardReloc patches a displacement field ending at the
// modification offset with the most recent definition of name, writing
// into the mapping.
func (m *CommittedModifier) BackwardReloc(name string, size uint8) {
	target, ok := m.asm.localDefs[name]
	if !ok {
		panic(&UnknownLabelError{Label: name})
	}
	m.patch(patchLoc{m.asm.Offset(), size}, target)
}

// patch resolves loc directly in the writable mapping.
func (m *CommittedModifier) patch(loc patchLoc, target AssemblyOffset) {
	loc.patch(m.buf.Bytes(), 0, target)
}

// encodeRelocs resolves the relocations recorded during the alteration
// against the writable mapping.
func (m *CommittedModifier) encodeRelocs() {
	m.asm.encodeRelocs(m.patch)
}

// UncommittedModifier is a cursor over the staging buffer, created by
// AlterUncommitted. Bytes are written over already emitted but not yet
// committed code. It deliberately exposes no label operations:
// rewriting bytes must not disturb relocations still queued for the
// next commit.
type UncommittedModifier struct {
	asm *Assembler
	off AssemblyOffset
}

var _ Emitter = (*UncommittedModifier)(nil)

// Offset returns the current modification offset.
func (m *UncommittedModifier) Offset() AssemblyOffset {
	return m.off
}

// PushByte overwrites the byte at the modification offset and advances
// it.
func (m *UncommittedModifier) PushByte(b byte) {
	m.asm.ops[m.off-m.asm.asmOff] = b
	m.off++
}

// Push overwrites a byte sequence starting at the modification offset.
func (m *UncommittedModifier) Push(bs []byte) {
	for _, b := range bs {
		m.PushByte(b)
	}
}

// Goto repositions the modification offset.
func (m *UncommittedModifier) Goto(off AssemblyOffset) {
	m.off = off
}

// Check panics if the modification offset has moved past off.
func (m *UncommittedModifier) Check(off AssemblyOffset) {
	if m.off > off {
		panic(&OffsetCheckError{Offset: m.off, Checked: off})
	}
}

// CheckExact panics unless the modification offset is exactly off.
func (m *UncommittedModifier) CheckExact(off AssemblyOffset) {
	if m.off != off {
		panic(&OffsetCheckError{Offset: m.off, Checked: off, Exact: true})
	}
}
