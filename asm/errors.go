// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
)

// ErrStillBorrowed is returned by (*Assembler).Finalize while Executor
// handles for the assembler still exist. Pending code has been
// committed by then, the Assembler stays usable, and Finalize can be
// retried once the handles are closed.
var ErrStillBorrowed = errors.New("asm: executable buffer still borrowed by an Executor")

// DuplicateLabelError is the panic value raised when a global or
// dynamic label is defined twice.
type DuplicateLabelError struct {
	Label string
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("asm: duplicate label %s", e.Label)
}

// UnknownLabelError is the panic value raised when a label reference
// cannot be resolved: a global or dynamic reloc whose label is still
// undefined at commit or alter time, a forward local reference with no
// matching definition before the commit boundary, or a backward local
// reference to a name that was never defined.
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("asm: unknown label %s", e.Label)
}

// InvalidPatchSizeError is the panic value raised when a relocation
// size is not 1, 2, 4 or 8.
type InvalidPatchSizeError uint8

func (e InvalidPatchSizeError) Error() string {
	return fmt.Sprintf("asm: invalid patch size %d", uint8(e))
}

// DisplacementOverflowError is the panic value raised when a resolved
// displacement does not fit the relocation field it was recorded with.
type DisplacementOverflowError struct {
	Size uint8
	Disp int64
}

func (e *DisplacementOverflowError) Error() string {
	return fmt.Sprintf("asm: displacement %d does not fit in %d bytes", e.Disp, e.Size)
}

// OffsetCheckError is the panic value raised when a modifier's Check
// or CheckExact assertion is violated.
type OffsetCheckError struct {
	Offset  AssemblyOffset
	Checked AssemblyOffset
	Exact   bool
}

func (e *OffsetCheckError) Error() string {
	if e.Exact {
		return fmt.Sprintf("asm: modification offset %d is not the checked offset %d", e.Offset, e.Checked)
	}
	return fmt.Sprintf("asm: modification offset %d is past the checked offset %d", e.Offset, e.Checked)
}

func (l DynamicLabel) String() string {
	return fmt.Sprintf("=>%d", int(l))
}
