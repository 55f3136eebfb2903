// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/pcbro/raw"
)

func genWords(t *testing.T, ntrigs, rows int) []uint16 {
	t.Helper()

	var (
		enc   = raw.NewEncoder()
		words []uint16
		err   error
	)
	for i := 0; i < ntrigs; i++ {
		blk := raw.NewBlock(rows, raw.TriggerChans)
		for j := range blk.Data {
			blk.Data[j] = int16(16 + (i+j)%0xee0)
		}
		words, err = enc.EncodeTrigger(words, blk)
		if err != nil {
			t.Fatalf("could not encode trigger %d: %+v", i, err)
		}
	}
	return words
}

func TestShell(t *testing.T) {
	var (
		words = genWords(t, 2, 3)
		out   = new(bytes.Buffer)
		sh    = newShell(out, words)
	)

	for _, tc := range []struct {
		cmd  string
		want string
		err  error
	}{
		{cmd: "pos", want: "pos=0 len=672 triggers=0\n"},
		{cmd: "hdr", want: "header@0 seq=1 res=0 unknown=[1df4 0001 0003 0000] cont=0x0000\n"},
		{cmd: "pkg", want: "package seq=1 span=[0, 84) payload=76 cont=0x0000\n"},
		{cmd: "link", want: "link packages=1 rows=3 outcome=complete residual=0\n"},
		{cmd: "pos", want: "pos=168 len=672 triggers=0\n"},
		{cmd: "seek 0", want: ""},
		{cmd: "trig", want: "trigger 0: 3x128 "},
		{cmd: "trig", want: "trigger 1: 3x128 "},
		{cmd: "trig", err: raw.ErrEndOfData},
		{cmd: "seek 588", want: ""},
		{cmd: "pkg", want: "package seq=8 span=[588, 672) payload=76 cont=0x0000\n(last package)\n"},
		{cmd: "dump 4", want: ""},
		{cmd: "seek 8", want: ""},
		{cmd: "dump 3", want: "00000008: [0000 face "},
		{cmd: "seek 1000", err: raw.ErrConfig},
		{cmd: "quit", err: errQuit},
	} {
		t.Run(tc.cmd, func(t *testing.T) {
			out.Reset()
			err := sh.exec(tc.cmd)
			switch {
			case tc.err != nil:
				if !errors.Is(err, tc.err) {
					t.Fatalf("invalid error: got=%+v, want=%+v", err, tc.err)
				}
				return
			case err != nil:
				t.Fatalf("could not run %q: %+v", tc.cmd, err)
			}
			if got := out.String(); !strings.HasPrefix(got, tc.want) {
				t.Fatalf("invalid output:\ngot= %q\nwant=%q", got, tc.want)
			}
		})
	}
}

func TestShellErrors(t *testing.T) {
	sh := newShell(new(bytes.Buffer), genWords(t, 1, 1))
	for _, cmd := range []string{
		"not-a-command",
		"seek",
		"seek abc",
		"hdr abc",
		"hdr 100000",
		"dump abc",
	} {
		t.Run(cmd, func(t *testing.T) {
			err := sh.exec(cmd)
			if err == nil {
				t.Fatalf("expected an error")
			}
		})
	}

	if err := sh.exec("   "); err != nil {
		t.Fatalf("empty command should be a no-op: %+v", err)
	}
}

func TestShellHelp(t *testing.T) {
	out := new(bytes.Buffer)
	sh := newShell(out, nil)

	err := sh.exec("help")
	if err != nil {
		t.Fatalf("could not run help: %+v", err)
	}
	for name := range sh.cmds {
		if !strings.Contains(out.String(), "  "+name) {
			t.Fatalf("missing command %q in help:\n%s", name, out.String())
		}
	}

	if got, want := sh.complete("p"), []string{"pkg", "pos"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid completion: got=%q, want=%q", got, want)
	}
	if got := sh.complete("x"); got != nil {
		t.Fatalf("invalid completion: got=%q", got)
	}
}

func TestLoad(t *testing.T) {
	tmp, err := os.MkdirTemp("", "pcbro-inspect-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	want := genWords(t, 1, 2)
	fname := filepath.Join(tmp, "run_1_2_3_164326542012.bin")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatalf("could not create raw file: %+v", err)
	}
	defer f.Close()
	err = raw.WriteWords(f, want)
	if err != nil {
		t.Fatalf("could not write raw file: %+v", err)
	}
	err = f.Close()
	if err != nil {
		t.Fatalf("could not close raw file: %+v", err)
	}

	got, err := load(fname)
	if err != nil {
		t.Fatalf("could not load raw file: %+v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid words")
	}
}
