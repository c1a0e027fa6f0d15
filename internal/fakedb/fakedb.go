// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb holds types to fake an in-memory DB.
package fakedb // import "github.com/go-lpc/amp/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

var query struct {
	mu    sync.Mutex
	rows  Rows
	execs []Exec
	err   error
}

// Exec is a statement executed against the fake DB.
type Exec struct {
	Query string
	Args  []driver.Value
}

// Run runs f with rows as the result of every query issued from f.
func Run(ctx context.Context, rows Rows, f func(ctx context.Context) error) error {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = rows
	query.execs = nil
	query.err = nil

	return f(ctx)
}

// RunErr runs f with every query and statement issued from f failing with err.
func RunErr(ctx context.Context, err error, f func(ctx context.Context) error) error {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = Rows{}
	query.execs = nil
	query.err = err

	return f(ctx)
}

// Execs returns the statements executed so far by the current Run.
// Execs must be called from within the function passed to Run.
func Execs() []Exec {
	return append([]Exec(nil), query.execs...)
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

// Open returns a new connection to the database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{query: query}, nil
}

func (c *Conn) Close() error {
	return nil
}

func (c *Conn) Begin() (driver.Tx, error) {
	panic("not implemented")
}

type Stmt struct {
	query string
}

func (stmt *Stmt) Close() error {
	return nil
}

// NumInput returns -1: the fake DB does not know its number of placeholders.
func (stmt *Stmt) NumInput() int {
	return -1
}

// Exec records the statement and its arguments.
func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	if query.err != nil {
		return nil, query.err
	}
	query.execs = append(query.execs, Exec{
		Query: stmt.query,
		Args:  append([]driver.Value(nil), args...),
	})
	return driver.RowsAffected(1), nil
}

func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	if query.err != nil {
		return nil, query.err
	}
	return &query.rows, nil
}

type Rows struct {
	Names  []string
	Values [][]driver.Value
}

func (rows *Rows) Columns() []string {
	return rows.Names
}

func (rows *Rows) Close() error {
	return nil
}

// Next populates dest with the next row.
// Next returns io.EOF when there are no more rows.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
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
