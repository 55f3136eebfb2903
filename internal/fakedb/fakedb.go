// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb provides an in-memory database/sql driver serving canned
// result sets, to test code querying the condition database.
package fakedb // import "github.com/go-lpc/pcbro/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

// Name is the name under which the fake driver is registered.
const Name = "fakedb"

var state struct {
	mu    sync.Mutex
	sets  []Rows
	calls []Call
}

// Call records a query issued against the fake database.
type Call struct {
	Query string
	Args  []driver.Value
}

// Run executes f with the provided result sets.
// Each query issued by f consumes the next result set.
// Run returns the queries issued by f.
func Run(ctx context.Context, f func(ctx context.Context) error, sets ...Rows) ([]Call, error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.sets = sets
	state.calls = nil
	defer func() {
		state.sets = nil
	}()

	err := f(ctx)
	return state.calls, err
}

func init() {
	sql.Register(Name, &Driver{})
}

// Driver is the fake database driver.
type Driver struct{}

func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

// Conn is a connection to the fake database.
type Conn struct{}

func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{query: query}, nil
}

func (c *Conn) Close() error { return nil }

func (c *Conn) Begin() (driver.Tx, error) {
	panic("fakedb: transactions not implemented")
}

// Stmt is a prepared statement.
type Stmt struct {
	query string
}

func (stmt *Stmt) Close() error { return nil }

// NumInput returns -1: the number of placeholders is not checked.
func (stmt *Stmt) NumInput() int { return -1 }

func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	panic("fakedb: exec not implemented")
}

// Query returns the next canned result set.
// An empty result set is returned once all of them have been consumed.
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	state.calls = append(state.calls, Call{Query: stmt.query, Args: args})
	if len(state.sets) == 0 {
		return &Rows{}, nil
	}
	rows := state.sets[0]
	state.sets = state.sets[1:]
	return &rows, nil
}

// Rows is a canned result set.
type Rows struct {
	Names  []string
	Values [][]driver.Value
	Err    error // error returned once all values have been consumed
}

func (rows *Rows) Columns() []string { return rows.Names }
func (rows *Rows) Close() error      { return nil }

func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		if rows.Err != nil {
			return rows.Err
		}
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*Conn)(nil)
	_ driver.Stmt   = (*Stmt)(nil)
	_ driver.Rows   = (*Rows)(nil)
)
