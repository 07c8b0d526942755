// Copyright 2019 The go-dynasm Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build ignore

package main

import (
	"bufio"
	"bytes"
	"flag"
	"log"
	"os"
	"os/exec"
)

func main() {
	log.SetPrefix("ci: ")
	log.SetFlags(0)

	var (
		race  = flag.Bool("race", true, "enable race detector")
		cover = flag.Bool("cover", false, "enable code coverage")
	)

	flag.Parse()

	out := new(bytes.Buffer)
	cmd := exec.Command("go", "list", "./...")
	cmd.Stdout = out
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		log.Fatal(err)
	}

	var f *os.File
	if *cover {
		var err error
		f, err = os.Create("coverage.txt")
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
	}

	// The assembler's reader/writer contract only shows up under the
	// race detector, so it is on by default.
	args := []string{"test", "-v"}
	if *race {
		args = append(args, "-race")
	}
	if *cover {
		args = append(args, "-coverprofile=profile.out", "-covermode=atomic")
	}
	args = append(args, "")

	scan := bufio.NewScanner(out)
	for scan.Scan() {
		args[len(args)-1] = scan.Text()
		cmd := exec.Command("go", args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			log.Fatal(err)
		}
		if *cover {
			profile, err := os.ReadFile("profile.out")
			if err != nil {
				log.Fatal(err)
			}
			if _, err = f.Write(profile); err != nil {
				log.Fatal(err)
			}
			os.Remove("profile.out")
		}
	}
	if err := scan.Err(); err != nil {
		log.Fatal(err)
	}
}
