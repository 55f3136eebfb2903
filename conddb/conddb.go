// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb provides access to the condition database of the pcbro
// readout: channel maps and run conditions.
package conddb // import "github.com/go-lpc/pcbro/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/go-lpc/pcbro/chmap"
	"github.com/go-lpc/pcbro/raw"
	_ "github.com/go-sql-driver/mysql"
)

var (
	host = "localhost"
	usr  = "pcbro"
	pwd  = ""

	drvName = "mysql"
)

func init() {
	if v := os.Getenv("PCBRO_DB_HOST"); v != "" {
		host = v
	}
	if v := os.Getenv("PCBRO_DB_USER"); v != "" {
		usr = v
	}
	if v := os.Getenv("PCBRO_DB_PASS"); v != "" {
		pwd = v
	}
}

// DB exposes convenience methods to retrieve conditions data from the pcbro
// database.
type DB struct {
	db   *sql.DB
	name string // name of the pcbro database
}

// Open opens a connection to the pcbro database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: dbname}, nil
}

// FromDB wraps an already opened connection to the pcbro database dbname.
func FromDB(db *sql.DB, dbname string) *DB {
	return &DB{db: db, name: dbname}
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// ChannelMap returns the channel map of the provided board.
func (db *DB) ChannelMap(ctx context.Context, board int) (chmap.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tbl chmap.Table
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT elec, phys FROM channels WHERE board=? ORDER BY elec",
		board,
	)
	if err != nil {
		return tbl, fmt.Errorf("conddb: could not query channel map of board %d: %w", board, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var elec, phys int
		err = rows.Scan(&elec, &phys)
		if err != nil {
			return tbl, fmt.Errorf("conddb: could not scan row %d of channel map: %w", n, err)
		}
		if elec < 0 || elec >= len(tbl) {
			return tbl, fmt.Errorf(
				"conddb: invalid electronics channel %d for board %d: %w",
				elec, board, raw.ErrConfig,
			)
		}
		tbl[elec] = phys
		n++
	}

	if err := rows.Err(); err != nil {
		return tbl, fmt.Errorf("conddb: could not scan db for channel map: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return tbl, fmt.Errorf("conddb: context error while retrieving channel map: %w", err)
	}

	if n != len(tbl) {
		return tbl, fmt.Errorf(
			"conddb: incomplete channel map for board %d (got=%d, want=%d): %w",
			board, n, len(tbl), raw.ErrConfig,
		)
	}

	err = tbl.Validate()
	if err != nil {
		return tbl, fmt.Errorf("conddb: invalid channel map for board %d: %w", board, err)
	}

	return tbl, nil
}

// Runs returns the conditions of all the runs of the provided board.
func (db *DB) Runs(ctx context.Context, board int) ([]Run, error) {
	return db.runs(ctx, "runs", `
SELECT identifier, board, step, module, start, framing, package_size FROM runs
WHERE board=? ORDER BY start
`,
		board,
	)
}

// LastRun returns the conditions of the last run of the provided board.
func (db *DB) LastRun(ctx context.Context, board int) (Run, error) {
	runs, err := db.runs(ctx, "last run", `
SELECT identifier, board, step, module, start, framing, package_size FROM runs
WHERE board=? ORDER BY start DESC LIMIT 1
`,
		board,
	)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("conddb: no run for board %d: %w", board, sql.ErrNoRows)
	}
	return runs[0], nil
}

func (db *DB) runs(ctx context.Context, name, query string, args ...any) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var runs []Run
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return runs, fmt.Errorf("conddb: could not run %s query: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var run Run
		err = rows.Scan(
			&run.ID, &run.Board, &run.Step, &run.Module,
			&run.Start, &run.Framing, &run.PackageSize,
		)
		if err != nil {
			return runs, fmt.Errorf("conddb: could not scan %s: %w", name, err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return runs, fmt.Errorf("conddb: could not scan db for %s: %w", name, err)
	}

	if err := ctx.Err(); err != nil {
		return runs, fmt.Errorf("conddb: context error while retrieving %s: %w", name, err)
	}

	return runs, nil
}
