// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package asm

import (
	"sync"
	"testing"
)

func TestConcurrentReaders(t *testing.T) {
	a := newTestAssembler(t)
	a.Push([]byte{0x90, 0xC3})
	a.Commit()

	r := a.Reader()
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := r.Clone()
			defer c.Close()
			lock := c.Lock()
			defer lock.Unlock()
			if got := lock.Bytes(); len(got) != 2 || got[0] != 0x90 {
				t.Errorf("reader saw % x, want 90 c3", got)
			}
		}()
	}
	wg.Wait()
}

func TestExecutorPtr(t *testing.T) {
	a := newTestAssembler(t)
	a.Push([]byte{0xC3, 0xC3})
	a.Commit()

	r := a.Reader()
	defer r.Close()
	lock := r.Lock()
	defer lock.Unlock()

	p0 := lock.Ptr(0)
	p1 := lock.Ptr(1)
	if p0 == 0 {
		t.Fatal("Ptr(0) = 0")
	}
	if p1 != p0+1 {
		t.Errorf("Ptr(1) = %#x, want %#x", p1, p0+1)
	}
}

func TestExecutorSeesCommitsAndGrowth(t *testing.T) {
	a := newTestAssembler(t)
	r := a.Reader()
	defer r.Close()

	a.Push([]byte{0x11})
	a.Commit()

	lock := r.Lock()
	if got := len(lock.Bytes()); got != 1 {
		t.Errorf("len = %d, want 1", got)
	}
	lock.Unlock()

	// Force a replacement of the mapping; the same handle must observe
	// the new one.
	a.Push(make([]byte, 8000))
	a.Commit()

	lock = r.Lock()
	defer lock.Unlock()
	if got := len(lock.Bytes()); got != 8001 {
		t.Errorf("len after grow = %d, want 8001", got)
	}
	if got := lock.Bytes()[0]; got != 0x11 {
		t.Errorf("byte 0 after grow = %#x, want 0x11", got)
	}
}
