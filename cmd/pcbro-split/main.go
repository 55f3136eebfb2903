// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pcbro-split splits a pcbro raw data file into smaller raw files
// holding at most n triggers each.
//
// Packages are copied verbatim: output files hold the original words of
// the input file.
package main // import "github.com/go-lpc/pcbro/cmd/pcbro-split"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/pcbro/internal/mmap"
	"github.com/go-lpc/pcbro/raw"
	flag "github.com/spf13/pflag"
)

var (
	msg = log.NewWithOptions(os.Stdout, log.Options{Prefix: "pcbro-split"})
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("pcbro-split", flag.ExitOnError)

		odir    = fset.StringP("output", "o", ".", "path to output directory")
		n       = fset.IntP("triggers", "n", 100, "maximum number of triggers per output file")
		framing = fset.String("framing", "seq", "package framing strategy (seq, sync)")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: pcbro-split [OPTIONS] file.bin [file2.bin [...]]

ex:
 $> pcbro-split -o ./out -n 10 ./run_1_2_3_164326542012.bin

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		msg.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		msg.Fatalf("missing input raw file")
	}

	if *n <= 0 {
		fset.Usage()
		msg.Fatalf("invalid number of triggers per file (n=%d)", *n)
	}

	for _, arg := range fset.Args() {
		_, err := process(*odir, *n, *framing, arg)
		if err != nil {
			msg.Fatalf("could not split raw file %q: %+v", arg, err)
		}
	}
}

func process(odir string, n int, framing, fname string) ([]string, error) {
	framer, err := raw.FramerFrom(framing)
	if err != nil {
		return nil, fmt.Errorf("invalid framing: %w", err)
	}

	err = os.MkdirAll(odir, 0755)
	if err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}

	f, err := mmap.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("could not open raw file: %w", err)
	}
	defer f.Close()

	var (
		words = raw.Words(f.Bytes())
		dec   = raw.NewDecoder(words, raw.WithFramer(framer))
		blk   raw.Block
		beg   = 0 // first word of the current chunk
		end   = 0 // end of the last decoded trigger
		ntrig = 0 // number of triggers in the current chunk
		onams []string
	)

	flush := func() error {
		oname := outFileFrom(filepath.Join(odir, filepath.Base(fname)), len(onams))
		msg.Printf("creating output file %q...", oname)
		o, err := os.Create(oname)
		if err != nil {
			return fmt.Errorf("could not create output file: %w", err)
		}
		defer o.Close()

		err = raw.WriteWords(o, words[beg:end])
		if err != nil {
			return fmt.Errorf("could not write output file %q: %w", oname, err)
		}

		err = o.Close()
		if err != nil {
			return fmt.Errorf("could not close output file %q: %w", oname, err)
		}

		onams = append(onams, oname)
		beg = end
		ntrig = 0
		return nil
	}

loop:
	for {
		err := dec.Decode(&blk)
		switch {
		case err == nil:
		case errors.Is(err, raw.ErrEndOfData):
			break loop
		default:
			return onams, fmt.Errorf("could not decode trigger %d: %w", dec.Triggers(), err)
		}
		end = dec.Pos()
		ntrig++
		if ntrig == n {
			err = flush()
			if err != nil {
				return onams, err
			}
		}
	}

	if ntrig > 0 {
		err = flush()
		if err != nil {
			return onams, err
		}
	}

	if rem := len(words) - end; rem > 0 {
		msg.Warnf("file %q: %d trailing words not copied", fname, rem)
	}

	return onams, nil
}

// outFileFrom inserts the chunk index i in the raw file name fname,
// preserving its trailing identity fields.
func outFileFrom(fname string, i int) string {
	var (
		dir  = filepath.Dir(fname)
		ext  = filepath.Ext(fname)
		base = strings.TrimSuffix(filepath.Base(fname), ext)
		toks = strings.Split(base, "_")
	)
	if len(toks) < 5 {
		return filepath.Join(dir, fmt.Sprintf("%s-%03d%s", base, i, ext))
	}
	var (
		pre = strings.Join(toks[:len(toks)-4], "_")
		id  = strings.Join(toks[len(toks)-4:], "_")
	)
	return filepath.Join(dir, fmt.Sprintf("%s-%03d_%s%s", pre, i, id, ext))
}
