// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pcbro-gen generates synthetic pcbro raw data files.
//
// Each trigger holds a noisy pedestal on all channels, plus a pulse on a
// few randomly chosen channels.
package main // import "github.com/go-lpc/pcbro/cmd/pcbro-gen"

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/pcbro/raw"
	flag "github.com/spf13/pflag"
)

var (
	msg = log.NewWithOptions(os.Stdout, log.Options{Prefix: "pcbro-gen"})
)

// samples are kept away from the zero and sync words so generated
// streams never hold a spurious package boundary.
const (
	adcMin = 16
	adcMax = 0xeff
)

type genOpts struct {
	ntrigs int     // number of triggers
	rows   int     // rows per trigger
	seed   uint64  // random seed
	ped    float64 // pedestal mean
	noise  float64 // pedestal noise
	pulses int     // number of pulsed channels per trigger
	enc    *raw.Encoder
}

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("pcbro-gen", flag.ExitOnError)

		odir   = fset.StringP("output", "o", ".", "path to output directory")
		prefix = fset.String("prefix", "pcbro", "prefix of the output file name")
		ntrigs = fset.IntP("triggers", "n", 10, "number of triggers to generate")
		rows   = fset.Int("rows", 498, "number of rows per trigger")
		pkgRow = fset.Int("package-rows", 153, "number of rows per full package")
		split  = fset.Bool("split", false, "split rows across package boundaries")
		seed   = fset.Uint64("seed", 1234, "random seed")
		ped    = fset.Float64("ped", 2048, "pedestal mean")
		noise  = fset.Float64("noise", 8, "pedestal noise")
		pulses = fset.Int("pulses", 4, "number of pulsed channels per trigger")
		board  = fset.Int("board", 1, "board number")
		step   = fset.Int("step", 0, "scan step")
		module = fset.Int("module", 0, "module number")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: pcbro-gen [OPTIONS]

ex:
 $> pcbro-gen -n 100 -rows 498 -o ./data
 $> pcbro-gen -n 10 -split -seed 42

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		msg.Fatalf("could not parse input arguments: %+v", err)
	}

	enc := raw.NewEncoder()
	enc.Rows = *pkgRow
	enc.Split = *split

	now := time.Now()
	id := raw.Identity{
		Board:  *board,
		Step:   *step,
		Module: *module,
		Epoch:  now.Unix(),
		Millis: 10 * (now.Nanosecond() / int(10*time.Millisecond)),
	}

	err = os.MkdirAll(*odir, 0755)
	if err != nil {
		msg.Fatalf("could not create output directory: %+v", err)
	}

	oname := filepath.Join(*odir, id.Name(*prefix)+".bin")
	f, err := os.Create(oname)
	if err != nil {
		msg.Fatalf("could not create output file: %+v", err)
	}
	defer f.Close()

	err = generate(f, genOpts{
		ntrigs: *ntrigs,
		rows:   *rows,
		seed:   *seed,
		ped:    *ped,
		noise:  *noise,
		pulses: *pulses,
		enc:    enc,
	})
	if err != nil {
		msg.Fatalf("could not generate raw data: %+v", err)
	}

	err = f.Close()
	if err != nil {
		msg.Fatalf("could not close output file: %+v", err)
	}

	msg.Infof("generated %d triggers into %q", *ntrigs, oname)
}

func generate(w io.Writer, o genOpts) error {
	var (
		rnd   = rand.New(rand.NewPCG(o.seed, o.seed^0x5ca1ab1e))
		blk   = raw.NewBlock(o.rows, raw.TriggerChans)
		words []uint16
		err   error
	)

	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	for i := 0; i < o.ntrigs; i++ {
		fill(blk, rnd, o)
		words, err = o.enc.EncodeTrigger(words[:0], blk)
		if err != nil {
			return fmt.Errorf("could not encode trigger %d: %w", i, err)
		}
		err = raw.WriteWords(wbuf, words)
		if err != nil {
			return fmt.Errorf("could not write trigger %d: %w", i, err)
		}
	}

	err = wbuf.Flush()
	if err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}

	return nil
}

func fill(blk *raw.Block, rnd *rand.Rand, o genOpts) {
	for i := range blk.Data {
		blk.Data[i] = clamp(o.ped + o.noise*rnd.NormFloat64())
	}

	if blk.Rows == 0 {
		return
	}

	for range o.pulses {
		var (
			col  = rnd.IntN(blk.Cols)
			peak = rnd.IntN(blk.Rows)
			amp  = 200 + 1500*rnd.Float64()
			tau  = 2 + 8*rnd.Float64()
		)
		for i := peak; i < blk.Rows; i++ {
			dt := float64(i - peak)
			v := float64(blk.At(i, col)) + amp*dt/tau*math.Exp(1-dt/tau)
			blk.Set(i, col, clamp(v))
		}
	}
}

func clamp(v float64) int16 {
	switch {
	case v < adcMin:
		return adcMin
	case v > adcMax:
		return adcMax
	}
	return int16(v)
}
