// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pcbro-sql inspects the pcbro condition database.
package main // import "github.com/go-lpc/pcbro/cmd/pcbro-sql"

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/pcbro/conddb"
	flag "github.com/spf13/pflag"
)

const (
	dbname = "pcbro"
)

var (
	msg = log.NewWithOptions(os.Stdout, log.Options{Prefix: "pcbro-sql"})
)

func main() {
	var (
		board = flag.Int("board", 1, "board to inspect")
		all   = flag.Bool("all", false, "display all the runs of the board")
		oname = flag.StringP("output", "o", "", "path to a file where to write the channel map of the board")
	)

	flag.Parse()

	msg.Printf("board: %03d", *board)

	db, err := conddb.Open(dbname)
	if err != nil {
		msg.Fatalf("could not open pcbro db: %+v", err)
	}
	defer db.Close()

	err = doQuery(os.Stdout, db, *board, *all, *oname)
	if err != nil {
		msg.Fatalf("could not do query: %+v", err)
	}
}

func doQuery(w io.Writer, db *conddb.DB, board int, all bool, oname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		runs []conddb.Run
		err  error
	)
	switch {
	case all:
		runs, err = db.Runs(ctx, board)
		if err != nil {
			return fmt.Errorf("could not get runs of board %d: %w", board, err)
		}
	default:
		run, err := db.LastRun(ctx, board)
		if err != nil {
			return fmt.Errorf("could not get last run of board %d: %w", board, err)
		}
		runs = append(runs, run)
	}

	fmt.Fprintf(w, "runs: %d\n", len(runs))
	for _, run := range runs {
		fmt.Fprintf(w,
			">>> run=%d step=%d module=%d start=%s framing=%s pkg-size=%d\n",
			run.ID, run.Step, run.Module,
			run.Start.UTC().Format(time.RFC3339), run.Framing, run.PackageSize,
		)
	}

	tbl, err := db.ChannelMap(ctx, board)
	if err != nil {
		return fmt.Errorf("could not get channel map of board %d: %w", board, err)
	}

	fmt.Fprintf(w, "channels:\n")
	for i := 0; i < len(tbl); i += 16 {
		fmt.Fprintf(w, "  %3d: %3d\n", i, tbl[i:i+16])
	}

	if oname == "" {
		return nil
	}

	f, err := os.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create channel map file: %w", err)
	}
	defer f.Close()

	err = tbl.Encode(f)
	if err != nil {
		return fmt.Errorf("could not write channel map: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close channel map file: %w", err)
	}

	return nil
}
