// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jit is a small instruction-encoding front end for the asm
// package. It encodes x86-64 instruction sequences through the Go
// assembler backend and streams the machine code into any asm.Emitter,
// and it pairs the control-transfer opcodes that take PC-relative
// displacements with the assembler's label API.
package jit

import (
	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/go-dynasm/dynasm/asm"
)

// Builder accumulates x86-64 instructions and encodes them in one
// Assemble pass. A Builder is single-use: after Encode or EmitTo it
// must not be reused.
type Builder struct {
	ab *goasm.Builder
}

// NewBuilder returns an empty amd64 instruction builder.
func NewBuilder() (*Builder, error) {
	ab, err := goasm.NewBuilder("amd64", 64)
	if err != nil {
		return nil, err
	}
	return &Builder{ab: ab}, nil
}

// Ret emits a near return.
func (b *Builder) Ret() {
	p := b.ab.NewProg()
	p.As = obj.ARET
	b.ab.AddInstruction(p)
}

// MovRegImm loads a 64-bit immediate into reg (one of the x86.REG_*
// constants).
func (b *Builder) MovRegImm(reg int16, v int64) {
	p := b.ab.NewProg()
	p.As = x86.AMOVQ
	p.From.Type = obj.TYPE_CONST
	p.From.Offset = v
	p.To.Type = obj.TYPE_REG
	p.To.Reg = reg
	b.ab.AddInstruction(p)
}

// MovRegReg copies src into dst.
func (b *Builder) MovRegReg(dst, src int16) {
	b.regReg(x86.AMOVQ, dst, src)
}

// AddRegReg adds src into dst.
func (b *Builder) AddRegReg(dst, src int16) {
	b.regReg(x86.AADDQ, dst, src)
}

// SubRegReg subtracts src from dst.
func (b *Builder) SubRegReg(dst, src int16) {
	b.regReg(x86.ASUBQ, dst, src)
}

func (b *Builder) regReg(as obj.As, dst, src int16) {
	p := b.ab.NewProg()
	p.As = as
	p.From.Type = obj.TYPE_REG
	p.From.Reg = src
	p.To.Type = obj.TYPE_REG
	p.To.Reg = dst
	b.ab.AddInstruction(p)
}

// Encode assembles the accumulated instructions into machine code.
func (b *Builder) Encode() []byte {
	return b.ab.Assemble()
}

// EmitTo assembles the accumulated instructions and appends the
// machine code to e.
func (b *Builder) EmitTo(e asm.Emitter) {
	e.Push(b.Encode())
}

// CallLabel emits a call with a 32-bit PC-relative displacement to the
// global label name. The displacement is filled in when the label is
// resolved at commit time.
func CallLabel(e asm.LabelEmitter, name string) {
	e.PushByte(0xE8)
	e.Push([]byte{0, 0, 0, 0})
	e.GlobalReloc(name, 4)
}

// JmpLabel emits a jump with a 32-bit PC-relative displacement to the
// global label name.
func JmpLabel(e asm.LabelEmitter, name string) {
	e.PushByte(0xE9)
	e.Push([]byte{0, 0, 0, 0})
	e.GlobalReloc(name, 4)
}

// JmpDynamic emits a jump with a 32-bit PC-relative displacement to
// the dynamic label id.
func JmpDynamic(e asm.LabelEmitter, id asm.DynamicLabel) {
	e.PushByte(0xE9)
	e.Push([]byte{0, 0, 0, 0})
	e.DynamicReloc(id, 4)
}

// JmpShortForward emits a short jump to the next definition of the
// local label name. The target must end up within rel8 range.
func JmpShortForward(e asm.LabelEmitter, name string) {
	e.PushByte(0xEB)
	e.PushByte(0)
	e.ForwardReloc(name, 1)
}

// JmpShortBackward emits a short jump to the most recent definition of
// the local label name, which must be within rel8 range.
func JmpShortBackward(e asm.LabelEmitter, name string) {
	e.PushByte(0xEB)
	e.PushByte(0)
	e.BackwardReloc(name, 1)
}
