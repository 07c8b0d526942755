// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"encoding/binary"
	"math"
)

// patchLoc describes a pending displacement field: end is the absolute
// offset of the byte immediately past the field, size its width. The
// field occupies [end-size, end).
type patchLoc struct {
	end  AssemblyOffset
	size uint8
}

// patch resolves the field against target, writing the signed
// little-endian displacement target-end into buf. buf's byte 0 lies at
// absolute offset base.
func (p patchLoc) patch(buf []byte, base, target AssemblyOffset) {
	switch p.size {
	case 1, 2, 4, 8:
	default:
		panic(InvalidPatchSizeError(p.size))
	}
	end := int(p.end - base)
	field := buf[end-int(p.size) : end]
	disp := int64(target) - int64(p.end)

	switch p.size {
	case 1:
		if disp < math.MinInt8 || disp > math.MaxInt8 {
			panic(&DisplacementOverflowError{Size: p.size, Disp: disp})
		}
		field[0] = byte(disp)
	case 2:
		if disp < math.MinInt16 || disp > math.MaxInt16 {
			panic(&DisplacementOverflowError{Size: p.size, Disp: disp})
		}
		binary.LittleEndian.PutUint16(field, uint16(disp))
	case 4:
		if disp < math.MinInt32 || disp > math.MaxInt32 {
			panic(&DisplacementOverflowError{Size: p.size, Disp: disp})
		}
		binary.LittleEndian.PutUint32(field, uint32(disp))
	case 8:
		binary.LittleEndian.PutUint64(field, uint64(disp))
	default:
		panic(InvalidPatchSizeError(p.size))
	}
}

// globalPatch is a pending relocation against a global label.
type globalPatch struct {
	loc  patchLoc
	name string
}

// dynamicPatch is a pending relocation against a dynamic label.
type dynamicPatch struct {
	loc patchLoc
	id  DynamicLabel
}
