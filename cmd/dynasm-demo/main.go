// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command dynasm-demo assembles a small program image with labels and
// relocations, publishes it, and hexdumps the executable mapping.
package main

import (
	"encoding/hex"
	"flag"
	"log"
	"os"

	"github.com/go-dynasm/dynasm/asm"
	"github.com/go-dynasm/dynasm/jit"
)

func main() {
	log.SetPrefix("dynasm-demo: ")
	log.SetFlags(0)

	verbose := flag.Bool("v", false, "enable/disable verbose mode")
	flag.Parse()

	asm.SetDebugMode(*verbose)

	a, err := asm.NewAssembler()
	if err != nil {
		log.Fatalf("could not allocate executable mapping: %v", err)
	}

	// A call through a forward global reference, a short local loop,
	// and an aligned second function.
	jit.CallLabel(a, "payload")
	b, err := jit.NewBuilder()
	if err != nil {
		log.Fatal(err)
	}
	b.Ret()
	b.EmitTo(a)

	a.Align(16)
	payload := a.Offset()
	a.GlobalLabel("payload")
	a.LocalLabel("spin")
	a.Push([]byte{0x90, 0x90})
	jit.JmpShortBackward(a, "spin")
	jit.JmpShortForward(a, "out")
	a.PushByte(0x90)
	a.LocalLabel("out")
	a.PushByte(0xC3)

	a.Commit()

	r := a.Reader()
	lock := r.Lock()
	if _, err := os.Stdout.WriteString(hex.Dump(lock.Bytes())); err != nil {
		log.Fatal(err)
	}
	log.Printf("entry point for %q at %#x", "payload", lock.Ptr(payload))
	lock.Unlock()
	r.Close()

	buf, err := a.Finalize()
	if err != nil {
		log.Fatalf("finalize: %v", err)
	}
	defer buf.Unmap()
	log.Printf("finalized %d bytes (capacity %d)", buf.Len(), buf.Cap())
}
