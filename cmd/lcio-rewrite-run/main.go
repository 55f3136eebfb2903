// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lcio-rewrite-run reads a pcbro LCIO file and rewrites its run
// number with the provided value.
//
// Events not holding a valid pcbro trigger are rejected, unless -skip is
// set, in which case they are dropped.
package main // import "github.com/go-lpc/pcbro/cmd/lcio-rewrite-run"

import (
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/pcbro/internal/xcnv"
	flag "github.com/spf13/pflag"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.NewWithOptions(os.Stdout, log.Options{Prefix: "lcio-rewrite"})
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("lcio-rewrite-run", flag.ExitOnError)

		runnbr = fset.Int32("run", 0, "run number to use for output LCIO file")
		oname  = fset.StringP("output", "o", "out.lcio", "path to output rewritten LCIO file")
		compr  = fset.Int("lvl", flate.BestCompression, "compression level for output LCIO file")
		freq   = fset.Int("freq", 10, "printout frequency")
		skip   = fset.Bool("skip", false, "drop events without a valid pcbro trigger")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: lcio-rewrite-run [OPTIONS] FILE.lcio

ex:
 $> lcio-rewrite-run -o output.lcio -run=1234 ./input.lcio
 lcio-rewrite: processing event 0...
 lcio-rewrite: processing event 10...
 lcio-rewrite: processing event 20...
 lcio-rewrite: processing event 30...
 lcio-rewrite: processed 36 events (dropped: 0)

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		msg.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		msg.Fatalf("missing input LCIO file to rewrite")
	}

	err = process(*oname, fset.Arg(0), *runnbr, *compr, *freq, *skip)
	if err != nil {
		msg.Fatalf("could not rewrite %q: %+v", fset.Arg(0), err)
	}
}

func process(oname, fname string, run int32, lvl, freq int, skip bool) error {
	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open input LCIO file: %w", err)
	}
	defer r.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	err = rewrite(w, r, run, freq, skip)
	if err != nil {
		return err
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output file: %w", err)
	}

	return nil
}

func rewrite(w *lcio.Writer, r *lcio.Reader, run int32, freq int, skip bool) error {
	if freq <= 0 {
		freq = 10
	}

	var (
		n    = 0
		drop = 0
	)
	for r.Next() {
		if n+drop == 0 {
			rhdr := r.RunHeader()
			rhdr.RunNumber = run
			err := w.WriteRunHeader(&rhdr)
			if err != nil {
				return fmt.Errorf("could not write run header: %w", err)
			}
		}

		evt := r.Event()
		_, err := xcnv.FrameFrom(&evt)
		if err != nil {
			if !skip {
				return fmt.Errorf("invalid event %d: %w", evt.EventNumber, err)
			}
			msg.Warnf("dropping event %d: %+v", evt.EventNumber, err)
			drop++
			continue
		}

		evt.RunNumber = run
		if n%freq == 0 {
			msg.Printf("processing event %d...", evt.EventNumber)
		}
		err = w.WriteEvent(&evt)
		if err != nil {
			return fmt.Errorf("could not write evt %d: %w", evt.EventNumber, err)
		}
		n++
	}

	err := r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}

	msg.Printf("processed %d events (dropped: %d)", n, drop)

	return nil
}
