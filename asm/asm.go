// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements an incremental, in-process x86-64 assembler
// runtime. An upstream instruction encoder drives the Assembler with
// raw instruction bytes and symbolic label references; the Assembler
// resolves the references into PC-relative displacements and publishes
// the result into an executable memory mapping that can be invoked as
// native code while further code is still being assembled.
package asm

// AssemblyOffset is an absolute position in the assembled program
// image, in bytes from the start of the executable mapping. Offsets
// are stable across buffer growth: they never move once handed out.
type AssemblyOffset int

// DynamicLabel is an opaque handle to a label allocated with
// (*Assembler).NewDynamicLabel. It can be referenced before it is
// bound to an offset.
type DynamicLabel int

// Emitter is the byte-sink side of the assembly API, implemented by
// the Assembler and both modifiers.
type Emitter interface {
	// Offset returns the absolute offset of the next byte to be
	// emitted.
	Offset() AssemblyOffset
	// PushByte appends a single byte.
	PushByte(b byte)
	// Push appends a byte sequence.
	Push(bs []byte)
}

// LabelEmitter extends Emitter with label definition and relocation.
// It is implemented by the Assembler and the CommittedModifier; the
// UncommittedModifier deliberately is not a LabelEmitter.
//
// Relocation sizes must be 1, 2, 4 or 8. A relocation records the
// current offset as the end of the displacement field, so the field's
// bytes must be emitted before the reloc call is made.
type LabelEmitter interface {
	Emitter

	// Align pads with NOP bytes (0x90) until the offset is a multiple
	// of n, which must be a power of two.
	Align(n int)

	// GlobalLabel defines name at the current offset. A global label
	// can be defined only once.
	GlobalLabel(name string)
	// GlobalReloc records a displacement field of the given size
	// ending at the current offset, targeting name. It is resolved at
	// the next commit or alter boundary.
	GlobalReloc(name string, size uint8)

	// DynamicLabel binds id to the current offset. A dynamic label can
	// be bound only once.
	DynamicLabel(id DynamicLabel)
	// DynamicReloc records a displacement field targeting id, resolved
	// at the next commit or alter boundary.
	DynamicReloc(id DynamicLabel, size uint8)

	// LocalLabel defines name at the current offset, patching any
	// forward references queued for it. Local labels may be redefined;
	// each definition starts a fresh scope for backward references.
	LocalLabel(name string)
	// ForwardReloc records a displacement field targeting the next
	// definition of the local label name.
	ForwardReloc(name string, size uint8)
	// BackwardReloc immediately patches a displacement field ending at
	// the current offset with the most recent definition of name.
	BackwardReloc(name string, size uint8)
}

// nop is the x86-64 single byte NOP used as alignment padding.
const nop = 0x90
