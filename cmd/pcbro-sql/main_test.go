// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/pcbro/chmap"
	"github.com/go-lpc/pcbro/conddb"
	"github.com/go-lpc/pcbro/internal/fakedb"
)

func channelRows(tbl chmap.Table) fakedb.Rows {
	rows := fakedb.Rows{Names: []string{"elec", "phys"}}
	for e, ch := range tbl {
		rows.Values = append(rows.Values, []driver.Value{int64(e), int64(ch)})
	}
	return rows
}

func runRows(n int) fakedb.Rows {
	rows := fakedb.Rows{
		Names: []string{"identifier", "board", "step", "module", "start", "framing", "package_size"},
	}
	t0 := time.Date(2022, time.January, 27, 6, 37, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rows.Values = append(rows.Values, []driver.Value{
			int64(10 + i), int64(1), int64(i), int64(3),
			t0.Add(time.Duration(i) * time.Hour), "seq", int64(3824),
		})
	}
	return rows
}

func TestQuery(t *testing.T) {
	tmp, err := os.MkdirTemp("", "pcbro-sql-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	sqldb, err := sql.Open(fakedb.Name, "")
	if err != nil {
		t.Fatalf("could not open fake db: %+v", err)
	}
	db := conddb.FromDB(sqldb, dbname)
	defer db.Close()

	for _, tc := range []struct {
		name  string
		all   bool
		runs  int
		oname string
	}{
		{name: "last", runs: 1},
		{name: "all", all: true, runs: 3, oname: filepath.Join(tmp, "chmap.yaml")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := new(bytes.Buffer)
			_, err := fakedb.Run(context.Background(), func(context.Context) error {
				return doQuery(out, db, 1, tc.all, tc.oname)
			}, runRows(tc.runs), channelRows(chmap.Default()))
			if err != nil {
				t.Fatalf("could not run query: %+v", err)
			}

			got := out.String()
			if n := strings.Count(got, ">>> run="); n != tc.runs {
				t.Fatalf("invalid number of runs: got=%d, want=%d\n%s", n, tc.runs, got)
			}
			if !strings.Contains(got, ">>> run=10 step=0 module=3 start=2022-01-27T06:37:00Z framing=seq pkg-size=3824\n") {
				t.Fatalf("invalid output:\n%s", got)
			}
			if !strings.Contains(got, "    0: [  1  32   2  31 ") {
				t.Fatalf("invalid channel map output:\n%s", got)
			}

			if tc.oname == "" {
				return
			}
			tbl, err := chmap.Load(tc.oname)
			if err != nil {
				t.Fatalf("could not load channel map: %+v", err)
			}
			if tbl != chmap.Default() {
				t.Fatalf("invalid channel map:\ngot= %v\nwant=%v", tbl, chmap.Default())
			}
		})
	}
}

func TestQueryNoRun(t *testing.T) {
	sqldb, err := sql.Open(fakedb.Name, "")
	if err != nil {
		t.Fatalf("could not open fake db: %+v", err)
	}
	db := conddb.FromDB(sqldb, dbname)
	defer db.Close()

	_, err = fakedb.Run(context.Background(), func(context.Context) error {
		return doQuery(new(bytes.Buffer), db, 1, false, "")
	})
	if err == nil {
		t.Fatalf("expected an error")
	}
}
