// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pcbro-inspect is an interactive shell to walk through the
// packages, links and triggers of a pcbro raw data file.
//
// Usage: pcbro-inspect [OPTIONS] FILE
//
// Example:
//
//	$> pcbro-inspect ./run_1_2_3_164326542012.bin
//	pcbro> pkg
//	package seq=1 span=[0, 3834) payload=3826
//	pcbro> link
//	link packages=4 rows=498 outcome=complete residual=0
//	pcbro> quit
package main // import "github.com/go-lpc/pcbro/cmd/pcbro-inspect"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/pcbro/internal/mmap"
	"github.com/go-lpc/pcbro/raw"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

var (
	msg = log.NewWithOptions(os.Stderr, log.Options{Prefix: "pcbro-inspect"})
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("pcbro-inspect", flag.ExitOnError)

		framing = fset.String("framing", "seq", "package framing strategy (seq, sync)")
		pkgsz   = fset.Int("package-size", raw.DefaultPackageSize, "nominal package payload size, in words")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: pcbro-inspect [OPTIONS] FILE

ex:
 $> pcbro-inspect ./run_1_2_3_164326542012.bin
 $> pcbro-inspect -framing=sync ./run_1_2_3_164326542012.bin

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
		msg.Fatalf("missing path to input raw file")
	}

	framer, err := raw.FramerFrom(*framing)
	if err != nil {
		msg.Fatalf("invalid framing: %+v", err)
	}

	words, err := load(fset.Arg(0))
	if err != nil {
		msg.Fatalf("could not load raw file: %+v", err)
	}

	sh := newShell(os.Stdout, words, raw.WithFramer(framer), raw.WithPackageSize(*pkgsz))
	err = sh.run()
	if err != nil {
		msg.Fatalf("could not run shell: %+v", err)
	}
}

func load(fname string) ([]uint16, error) {
	f, err := mmap.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("could not open raw file: %w", err)
	}
	defer f.Close()

	return raw.Words(f.Bytes()), nil
}

type shell struct {
	w     io.Writer
	words []uint16
	dec   *raw.Decoder
	blk   raw.Block
	cmds  map[string]command
}

type command struct {
	help string
	run  func(args []string) error
}

var errQuit = errors.New("quit")

func newShell(w io.Writer, words []uint16, opts ...raw.Option) *shell {
	sh := &shell{
		w:     w,
		words: words,
		dec:   raw.NewDecoder(words, opts...),
	}
	sh.cmds = map[string]command{
		"pkg":  {"read the next package header", sh.cmdPkg},
		"link": {"assemble the next link", sh.cmdLink},
		"trig": {"decode the next trigger", sh.cmdTrig},
		"seek": {"move the cursor to word N", sh.cmdSeek},
		"pos":  {"display the cursor position", sh.cmdPos},
		"hdr":  {"display the package header at the cursor (or at word N)", sh.cmdHdr},
		"dump": {"display N words from the cursor (default: 16)", sh.cmdDump},
		"help": {"display this help message", sh.cmdHelp},
		"quit": {"quit the shell", func([]string) error { return errQuit }},
	}
	return sh
}

func (sh *shell) run() error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(sh.complete)

	fmt.Fprintf(sh.w, "loaded %d words. type 'help' for a list of commands.\n", len(sh.words))
	for {
		line, err := term.Prompt("pcbro> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("could not read prompt: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		term.AppendHistory(line)

		err = sh.exec(line)
		if err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(sh.w, "error: %+v\n", err)
		}
	}
}

func (sh *shell) complete(line string) []string {
	var o []string
	for name := range sh.cmds {
		if strings.HasPrefix(name, line) {
			o = append(o, name)
		}
	}
	sort.Strings(o)
	return o
}

func (sh *shell) exec(line string) error {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return nil
	}
	cmd, ok := sh.cmds[toks[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", toks[0])
	}
	return cmd.run(toks[1:])
}

func (sh *shell) cmdPkg(args []string) error {
	hdr, beg, end, err := sh.dec.NextPackage()
	last := errors.Is(err, raw.ErrEndOfData) && end > beg
	if err != nil && !last {
		return err
	}
	fmt.Fprintf(sh.w,
		"package seq=%d span=[%d, %d) payload=%d cont=0x%04x\n",
		hdr.Seq, beg, end, max(end-beg-raw.HeaderLen, 0), hdr.Cont,
	)
	if last {
		fmt.Fprintf(sh.w, "(last package)\n")
	}
	return nil
}

func (sh *shell) cmdLink(args []string) error {
	lnk, err := sh.dec.NextLink()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w,
		"link packages=%d rows=%d outcome=%v residual=%d\n",
		lnk.Packages, lnk.Rows(), lnk.Outcome, lnk.Residual(),
	)
	return nil
}

func (sh *shell) cmdTrig(args []string) error {
	err := sh.dec.Decode(&sh.blk)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "trigger %d: %v\n", sh.dec.Triggers()-1, sh.blk.Stats())
	return nil
}

func (sh *shell) cmdSeek(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("seek: expected 1 argument, got %d", len(args))
	}
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("seek: invalid position %q: %w", args[0], err)
	}
	return sh.dec.Seek(pos)
}

func (sh *shell) cmdPos(args []string) error {
	fmt.Fprintf(sh.w, "pos=%d len=%d triggers=%d\n", sh.dec.Pos(), sh.dec.Len(), sh.dec.Triggers())
	return nil
}

func (sh *shell) cmdHdr(args []string) error {
	pos := sh.dec.Pos()
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("hdr: invalid position %q: %w", args[0], err)
		}
		pos = v
	}
	hdr, err := raw.ParseHeader(sh.words, pos)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w,
		"header@%d seq=%d res=%d unknown=%04x cont=0x%04x\n",
		pos, hdr.Seq, hdr.Res, hdr.Unknown, hdr.Cont,
	)
	return nil
}

func (sh *shell) cmdDump(args []string) error {
	n := 16
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("dump: invalid number of words %q: %w", args[0], err)
		}
		n = v
	}
	var (
		beg = sh.dec.Pos()
		end = min(beg+max(n, 0), len(sh.words))
	)
	for i := beg; i < end; i += 8 {
		fmt.Fprintf(sh.w, "%08d: %04x\n", i, sh.words[i:min(i+8, end)])
	}
	return nil
}

func (sh *shell) cmdHelp(args []string) error {
	names := make([]string, 0, len(sh.cmds))
	for name := range sh.cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(sh.w, "  %-5s %s\n", name, sh.cmds[name].help)
	}
	return nil
}
