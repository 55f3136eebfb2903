// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"compress/flate"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-lpc/pcbro/chmap"
	"github.com/go-lpc/pcbro/internal/xcnv"
	"github.com/go-lpc/pcbro/raw"
	"github.com/go-lpc/pcbro/rawsrc"
	"go-hep.org/x/hep/lcio"
)

func genLCIO(t *testing.T, fname string, run int32, bad bool) {
	t.Helper()

	w, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer w.Close()

	err = w.WriteRunHeader(&lcio.RunHeader{
		RunNumber: run,
		Detector:  xcnv.Detector,
	})
	if err != nil {
		t.Fatalf("could not write run header: %+v", err)
	}

	for i := 0; i < 3; i++ {
		blk := raw.NewBlock(2, raw.TriggerChans)
		for j := range blk.Data {
			blk.Data[j] = int16(i + j)
		}
		evt := xcnv.EventFrom(&rawsrc.Frame{
			Trigger:  i,
			Block:    blk,
			Channels: chmap.Default(),
		}, run)
		err = w.WriteEvent(&evt)
		if err != nil {
			t.Fatalf("could not write event %d: %+v", i, err)
		}
	}

	if bad {
		evt := lcio.Event{RunNumber: run, EventNumber: 3}
		err = w.WriteEvent(&evt)
		if err != nil {
			t.Fatalf("could not write bad event: %+v", err)
		}
	}

	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}
}

func TestRewrite(t *testing.T) {
	tmp, err := os.MkdirTemp("", "lcio-rewrite-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	for _, tc := range []struct {
		name string
		bad  bool
		skip bool
		fail bool
	}{
		{name: "ok"},
		{name: "bad-skip", bad: true, skip: true},
		{name: "bad-fail", bad: true, fail: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var (
				iname = filepath.Join(tmp, tc.name+"-in.lcio")
				oname = filepath.Join(tmp, tc.name+"-out.lcio")
			)
			genLCIO(t, iname, 42, tc.bad)

			err := process(oname, iname, 1234, flate.DefaultCompression, 1, tc.skip)
			switch {
			case tc.fail:
				if err == nil {
					t.Fatalf("expected an error")
				}
				return
			case err != nil:
				t.Fatalf("could not rewrite file: %+v", err)
			}

			r, err := lcio.Open(oname)
			if err != nil {
				t.Fatalf("could not open output file: %+v", err)
			}
			defer r.Close()

			n := 0
			for r.Next() {
				evt := r.Event()
				if got, want := evt.RunNumber, int32(1234); got != want {
					t.Fatalf("invalid run number: got=%d, want=%d", got, want)
				}
				if got, want := r.RunHeader().RunNumber, int32(1234); got != want {
					t.Fatalf("invalid run header: got=%d, want=%d", got, want)
				}
				n++
			}
			if err := r.Err(); err != nil && !errors.Is(err, io.EOF) {
				t.Fatalf("could not read output file: %+v", err)
			}
			if got, want := n, 3; got != want {
				t.Fatalf("invalid number of events: got=%d, want=%d", got, want)
			}
		})
	}
}
