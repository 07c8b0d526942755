// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package buffer

import (
	"os"
	"testing"
)

func TestNewExecutable(t *testing.T) {
	b, err := NewExecutable(0, 4096)
	if err != nil {
		t.Fatalf("NewExecutable: %v", err)
	}
	defer b.Unmap()

	if got := b.Len(); got != 0 {
		t.Errorf("Len = %d, want 0", got)
	}
	if got := b.Cap(); got < 4096 {
		t.Errorf("Cap = %d, want >= 4096", got)
	}
	if got := b.Cap() % os.Getpagesize(); got != 0 {
		t.Errorf("Cap %% pagesize = %d, want 0", got)
	}
}

func TestPageRounding(t *testing.T) {
	b, err := NewExecutable(0, 1)
	if err != nil {
		t.Fatalf("NewExecutable: %v", err)
	}
	defer b.Unmap()
	if got, want := b.Cap(), os.Getpagesize(); got != want {
		t.Errorf("Cap = %d, want one page (%d)", got, want)
	}
}

func TestProtectionRoundTrip(t *testing.T) {
	mut, err := NewMutable(3, 4096)
	if err != nil {
		t.Fatalf("NewMutable: %v", err)
	}
	mut.Bytes()[0] = 0x90
	mut.Bytes()[1] = 0x90
	mut.Bytes()[2] = 0xC3
	addr := &mut.Bytes()[0]

	exe, err := mut.MakeExec()
	if err != nil {
		t.Fatalf("MakeExec: %v", err)
	}
	defer exe.Unmap()

	if got := exe.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
	if got := exe.Bytes(); got[0] != 0x90 || got[2] != 0xC3 {
		t.Errorf("contents lost across MakeExec: % x", got)
	}
	if &exe.Bytes()[0] != addr {
		t.Error("MakeExec moved the backing address")
	}

	mut2, err := exe.MakeMut()
	if err != nil {
		t.Fatalf("MakeMut: %v", err)
	}
	mut2.Bytes()[1] = 0xCC
	if &mut2.Bytes()[0] != addr {
		t.Error("MakeMut moved the backing address")
	}

	exe2, err := mut2.MakeExec()
	if err != nil {
		t.Fatalf("MakeExec: %v", err)
	}
	if got := exe2.Bytes()[1]; got != 0xCC {
		t.Errorf("byte 1 = %#x, want 0xcc", got)
	}
}

func TestExecutableZeroed(t *testing.T) {
	b, err := NewExecutable(16, 4096)
	if err != nil {
		t.Fatalf("NewExecutable: %v", err)
	}
	defer b.Unmap()
	for i, v := range b.Bytes() {
		if v != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, v)
		}
	}
}

func TestPtr(t *testing.T) {
	b, err := NewExecutable(2, 4096)
	if err != nil {
		t.Fatalf("NewExecutable: %v", err)
	}
	defer b.Unmap()
	if got, want := b.Ptr(1), b.Ptr(0)+1; got != want {
		t.Errorf("Ptr(1) = %#x, want %#x", got, want)
	}
}
