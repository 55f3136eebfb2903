// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// lcio-dump decodes and displays pcbro triggers embedded in LCIO files.
//
// Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> lcio-dump ./testdata/run_1_2_3_164326542012.lcio
//	=== event 0 ===
//	file:    run_1_2_3_164326542012.bin
//	index:            0
//	block:   498x128 min=16 max=3802 sum=126532096 avg=1985.1
//	[...]
package main // import "github.com/go-lpc/pcbro/cmd/lcio-dump"

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/pcbro/internal/xcnv"
	"github.com/go-lpc/pcbro/rawsrc"
	flag "github.com/spf13/pflag"
	"go-hep.org/x/hep/lcio"
)

const usage = `lcio-dump decodes and displays pcbro triggers embedded in LCIO files.

Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> lcio-dump ./testdata/run_1_2_3_164326542012.lcio
 === event 0 ===
 file:    run_1_2_3_164326542012.bin
 index:            0
 block:   498x128 min=16 max=3802 sum=126532096 avg=1985.1
 [...]

`

var (
	msg = log.NewWithOptions(os.Stderr, log.Options{Prefix: "lcio-dump"})
)

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	var (
		fset = flag.NewFlagSet("lcio-dump", flag.ExitOnError)

		nrows = fset.IntP("rows", "n", 0, "number of rows to display for each trigger")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		msg.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		msg.Fatalf("missing path to input LCIO file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *nrows)
		if err != nil {
			msg.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, nrows int) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	return xcnv.LCIO2Raw(r, func(frame *rawsrc.Frame) error {
		var (
			blk = frame.Block
			st  = blk.Stats()
		)
		fmt.Fprintf(wbuf, "=== event %d ===\n", frame.Trigger)
		fmt.Fprintf(wbuf, "file:    %s\n", frame.File)
		fmt.Fprintf(wbuf, "index:   % 10d\n", frame.Index)
		fmt.Fprintf(wbuf, "block:   %v\n", st)

		for i := 0; i < min(nrows, blk.Rows); i++ {
			fmt.Fprintf(wbuf, "  row=%4d %v\n", i, blk.Row(i))
		}
		return nil
	})
}
