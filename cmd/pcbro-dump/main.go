// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// pcbro-dump decodes and displays the triggers of pcbro raw data files.
//
// Usage: pcbro-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> pcbro-dump ./testdata/run_1_2_3_164326542012.bin
//	=== file: ./testdata/run_1_2_3_164326542012.bin ===
//	board=1 step=2 module=3 start=2022-01-27 07:37:00.120 (CET)
//	trigger    0: 498x128 min=16 max=3802 sum=126532096 avg=1985.1 crc=0x2f1d
//	trigger    1: 498x128 min=16 max=3805 sum=126544231 avg=1985.3 crc=0x91e2
//	[...]
package main // import "github.com/go-lpc/pcbro/cmd/pcbro-dump"

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/pcbro"
	"github.com/go-lpc/pcbro/internal/crc16"
	"github.com/go-lpc/pcbro/raw"
	"github.com/go-lpc/pcbro/rawsrc"
	"github.com/lestrrat-go/strftime"
	flag "github.com/spf13/pflag"
	"gonum.org/v1/gonum/stat"
)

const usage = `pcbro-dump decodes and displays the triggers of pcbro raw data files.

Usage: pcbro-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> pcbro-dump ./testdata/run_1_2_3_164326542012.bin
 $> pcbro-dump -v -remap ./testdata/run_1_2_3_164326542012.bin

Options:
`

var (
	msg = log.NewWithOptions(os.Stderr, log.Options{Prefix: "pcbro-dump"})
)

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	var (
		fset = flag.NewFlagSet("pcbro-dump", flag.ExitOnError)

		vers = fset.Bool("version", false, "display version and exit")

		verbose = fset.BoolP("verbose", "v", false, "display per-channel statistics")
		remap   = fset.Bool("remap", false, "reorder channels by physical channel number")
		chmap   = fset.String("chmap", "", "path to a channel map file")
		framing = fset.String("framing", "seq", "package framing strategy (seq, sync)")
		pkgsz   = fset.Int("package-size", raw.DefaultPackageSize, "nominal package payload size, in words")
		lvl     = fset.String("lvl", "warn", "log level (debug, info, warn, error)")
	)

	fset.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		msg.Fatalf("could not parse input arguments: %+v", err)
	}

	if *vers {
		v, sum := pcbro.Version()
		fmt.Fprintf(w, "pcbro-dump %s %s\n", v, sum)
		return
	}

	if fset.NArg() == 0 {
		fset.Usage()
		msg.Fatalf("missing path to input raw file")
	}

	level, err := log.ParseLevel(*lvl)
	if err != nil {
		msg.Fatalf("invalid log level %q: %+v", *lvl, err)
	}
	msg.SetLevel(level)

	cfg := rawsrc.DefaultConfig()
	cfg.Files = fset.Args()
	cfg.Framing = *framing
	cfg.PackageSize = *pkgsz
	cfg.Remap = *remap
	cfg.ChMap = *chmap

	err = process(w, cfg, *verbose)
	if err != nil {
		msg.Fatalf("could not dump files: %+v", err)
	}
}

func process(w io.Writer, cfg rawsrc.Config, verbose bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	src, err := rawsrc.New(cfg, rawsrc.WithLogger(msg))
	if err != nil {
		return fmt.Errorf("could not create raw source: %w", err)
	}

	stamp, err := strftime.New("%Y-%m-%d %H:%M:%S.%L", strftime.WithMilliseconds('L'))
	if err != nil {
		return fmt.Errorf("could not create time formatter: %w", err)
	}

	var (
		cur  = ""
		hash = crc16.New(nil)
		buf  []byte
		col  []int16
		xs   []float64
	)
	for {
		frame, ok, err := src.Poll()
		if err != nil {
			return fmt.Errorf("could not decode triggers: %w", err)
		}
		if !ok || frame == nil {
			break
		}

		if frame.File != cur {
			cur = frame.File
			id := frame.Ident
			t, loc := acqTime(id.Time())
			fmt.Fprintf(wbuf, "=== file: %s ===\n", cur)
			fmt.Fprintf(wbuf,
				"board=%d step=%d module=%d start=%s (%s)\n",
				id.Board, id.Step, id.Module, stamp.FormatString(t), loc,
			)
		}

		blk := frame.Block
		buf = digest(buf[:0], blk)
		hash.Reset()
		_, _ = hash.Write(buf)

		st := blk.Stats()
		fmt.Fprintf(wbuf,
			"trigger %4d: %dx%d min=%d max=%d sum=%d avg=%.1f crc=0x%04x\n",
			frame.Index, st.Rows, st.Cols, st.Min, st.Max, st.Sum, st.Mean, hash.Sum16(),
		)

		if !verbose || blk.Rows == 0 {
			continue
		}

		for j := 0; j < blk.Cols; j++ {
			col = blk.Col(col, j)
			xs = xs[:0]
			for _, v := range col {
				xs = append(xs, float64(v))
			}
			mean, std := stat.MeanStdDev(xs, nil)
			fmt.Fprintf(wbuf, "  ch=%3d mean=%8.2f rms=%8.2f\n", frame.Channels[j], mean, std)
		}
	}

	st := src.Stats()
	fmt.Fprintf(wbuf, "files: %d, failed: %d, triggers: %d\n", st.Files, st.Failed, st.Triggers)

	return nil
}

// digest appends the big-endian samples of the block to buf.
func digest(buf []byte, blk *raw.Block) []byte {
	for _, v := range blk.Data {
		buf = binary.BigEndian.AppendUint16(buf, uint16(v))
	}
	return buf
}

// acqTime converts t to the time zone of the experiment site.
func acqTime(t time.Time) (time.Time, string) {
	loc, err := time.LoadLocation("CET")
	if err != nil {
		return t.UTC(), "UTC"
	}
	return t.In(loc), "CET"
}
