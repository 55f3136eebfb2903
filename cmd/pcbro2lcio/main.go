// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pcbro2lcio converts pcbro raw data files to LCIO ones.
//
// Each input file is converted into its own LCIO file, named after the
// input file, in the output directory.
package main // import "github.com/go-lpc/pcbro/cmd/pcbro2lcio"

import (
	"compress/flate"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/pcbro"
	"github.com/go-lpc/pcbro/internal/xcnv"
	"github.com/go-lpc/pcbro/rawsrc"
	"github.com/sbinet/pmon"
	flag "github.com/spf13/pflag"
	"go-hep.org/x/hep/lcio"
	"golang.org/x/sync/errgroup"
)

var (
	msg = log.NewWithOptions(os.Stdout, log.Options{Prefix: "pcbro2lcio"})
)

type opts struct {
	odir  string // output directory
	lvl   int    // compression level
	run   int32  // run number
	freq  int    // printout frequency
	njobs int    // number of concurrent conversions
	cfg   rawsrc.Config
}

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("pcbro2lcio", flag.ExitOnError)

		vers = fset.Bool("version", false, "display version and exit")

		odir  = fset.StringP("output", "o", ".", "path to output directory")
		compr = fset.Int("lvl", flate.DefaultCompression, "compression level for output LCIO files")
		run   = fset.Int32("run", 0, "run number to store in LCIO files")
		freq  = fset.Int("freq", 100, "printout frequency")
		njobs = fset.IntP("jobs", "j", runtime.NumCPU(), "number of concurrent conversions")
		fcfg  = fset.String("cfg", "", "path to a YAML raw source configuration file")
		remap = fset.Bool("remap", false, "reorder channels by physical channel number")

		doMon  = fset.Bool("pmon", false, "enable pmon monitoring")
		monFrq = fset.Duration("pmon-freq", 1*time.Second, "pmon frequency")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: pcbro2lcio [OPTIONS] file1.bin [file2.bin [...]]

ex:
 $> pcbro2lcio -o ./out -lvl=9 ./run_1_2_3_164326542012.bin
 $> pcbro2lcio -j 4 -cfg ./rawsrc.yaml ./data/*.bin

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		msg.Fatalf("could not parse input arguments: %+v", err)
	}

	if *vers {
		v, sum := pcbro.Version()
		fmt.Fprintf(os.Stdout, "pcbro2lcio %s %s\n", v, sum)
		return
	}

	if fset.NArg() == 0 {
		fset.Usage()
		msg.Fatalf("missing input raw file(s)")
	}

	cfg := rawsrc.DefaultConfig()
	if *fcfg != "" {
		cfg, err = rawsrc.LoadConfig(*fcfg)
		if err != nil {
			msg.Fatalf("could not load configuration: %+v", err)
		}
	}
	if *remap {
		cfg.Remap = true
	}

	if *doMon {
		err = os.MkdirAll(*odir, 0755)
		if err != nil {
			msg.Fatalf("could not create output directory: %+v", err)
		}
		p, err := pmon.Monitor(os.Getpid())
		if err != nil {
			msg.Fatalf("could not start monitoring: %+v", err)
		}
		f, err := os.Create(filepath.Join(*odir, "pcbro2lcio-pmon.log"))
		if err != nil {
			msg.Fatalf("could not create pmon log file: %+v", err)
		}
		defer f.Close()
		p.W = f
		p.Freq = *monFrq

		go func() {
			err := p.Run()
			if err != nil {
				msg.Errorf("could not run monitoring: %+v", err)
			}
		}()
		defer func() {
			err := p.Kill()
			if err != nil {
				msg.Errorf("could not stop monitoring: %+v", err)
			}
		}()
	}

	err = process(opts{
		odir:  *odir,
		lvl:   *compr,
		run:   *run,
		freq:  *freq,
		njobs: *njobs,
		cfg:   cfg,
	}, fset.Args())
	if err != nil {
		msg.Fatalf("could not convert raw files: %+v", err)
	}
}

func process(o opts, fnames []string) error {
	err := os.MkdirAll(o.odir, 0755)
	if err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	var grp errgroup.Group
	grp.SetLimit(max(o.njobs, 1))

	for _, fname := range fnames {
		fname := fname
		oname := outputName(o.odir, fname)
		grp.Go(func() error {
			return convert(oname, fname, o)
		})
	}

	err = grp.Wait()
	if err != nil {
		return fmt.Errorf("could not convert raw files: %w", err)
	}

	return nil
}

func convert(oname, fname string, o opts) error {
	cfg := o.cfg
	cfg.Files = []string{fname}
	cfg.OnError = rawsrc.Abort

	src, err := rawsrc.New(cfg, rawsrc.WithLogger(msg))
	if err != nil {
		return fmt.Errorf("could not create raw source for %q: %w", fname, err)
	}

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(o.lvl)

	n, err := xcnv.Raw2LCIO(w, src, o.run, o.freq, msg.With("file", filepath.Base(fname)))
	if err != nil {
		return fmt.Errorf("could not convert %q to LCIO: %w", fname, err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file %q: %w", oname, err)
	}

	msg.Infof("converted %q: %d events -> %q", fname, n, oname)
	return nil
}

func outputName(dir, fname string) string {
	base := filepath.Base(fname)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+".lcio")
}
