// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package jit

import (
	"bytes"
	"testing"

	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/go-dynasm/dynasm/asm"
)

func newTestAssembler(t *testing.T) *asm.Assembler {
	t.Helper()
	a, err := asm.NewAssembler()
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}
	return a
}

func published(t *testing.T, a *asm.Assembler) []byte {
	t.Helper()
	r := a.Reader()
	defer r.Close()
	lock := r.Lock()
	defer lock.Unlock()
	out := make([]byte, len(lock.Bytes()))
	copy(out, lock.Bytes())
	return out
}

func TestEncodeRet(t *testing.T) {
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.Ret()
	got := b.Encode()
	want := []byte{0xC3}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode = % x, want % x", got, want)
	}
}

func TestEncodeSequence(t *testing.T) {
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.MovRegImm(x86.REG_AX, 1234)
	b.MovRegReg(x86.REG_CX, x86.REG_AX)
	b.AddRegReg(x86.REG_AX, x86.REG_CX)
	b.SubRegReg(x86.REG_AX, x86.REG_CX)
	b.Ret()
	got := b.Encode()
	if len(got) < 5 {
		t.Fatalf("Encode returned %d bytes", len(got))
	}
	if got[len(got)-1] != 0xC3 {
		t.Errorf("last byte = %#x, want 0xc3 (ret)", got[len(got)-1])
	}
}

func TestEmitTo(t *testing.T) {
	a := newTestAssembler(t)
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.Ret()
	b.EmitTo(a)
	a.Commit()

	if got := published(t, a); len(got) != 1 || got[0] != 0xC3 {
		t.Errorf("published = % x, want c3", got)
	}
}

func TestCallLabel(t *testing.T) {
	a := newTestAssembler(t)
	CallLabel(a, "f")
	a.GlobalLabel("f")
	a.PushByte(0xC3)
	a.Commit()

	got := published(t, a)
	want := []byte{0xE8, 0, 0, 0, 0, 0xC3}
	if !bytes.Equal(got, want) {
		t.Errorf("published = % x, want % x", got, want)
	}
}

func TestJmpDynamic(t *testing.T) {
	a := newTestAssembler(t)
	l := a.NewDynamicLabel()
	JmpDynamic(a, l)
	a.Push([]byte{0x90, 0x90})
	a.DynamicLabel(l)
	a.PushByte(0xC3)
	a.Commit()

	got := published(t, a)
	// field ends at 5, target 7: disp 2.
	want := []byte{0xE9, 2, 0, 0, 0}
	if !bytes.Equal(got[:5], want) {
		t.Errorf("published = % x, want % x", got[:5], want)
	}
}

func TestJmpShortLoop(t *testing.T) {
	a := newTestAssembler(t)
	a.LocalLabel("loop")
	a.Push([]byte{0x90, 0x90})
	JmpShortBackward(a, "loop")
	JmpShortForward(a, "done")
	a.Push([]byte{0x90, 0x90, 0x90})
	a.LocalLabel("done")
	a.PushByte(0xC3)
	a.Commit()

	got := published(t, a)
	// backward: field ends at 4, target 0: disp -4.
	if got[3] != 0xFC {
		t.Errorf("backward disp = %#x, want 0xfc", got[3])
	}
	// forward: field ends at 6, target 9: disp 3.
	if got[5] != 0x03 {
		t.Errorf("forward disp = %#x, want 0x03", got[5])
	}
}
