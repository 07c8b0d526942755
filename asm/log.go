// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"io/ioutil"
	"log"
	"os"
)

var logger = log.New(ioutil.Discard, "", log.Lshortfile)

// SetDebugMode enables or disables debug logging of commit, grow,
// alter and finalize decisions to stderr.
func SetDebugMode(dbg bool) {
	w := ioutil.Discard
	if dbg {
		w = os.Stderr
	}
	logger = log.New(w, "", log.Lshortfile)
}
