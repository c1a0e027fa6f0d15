// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to describe the configuration database
// of the amplifier boards, and the log of their fault events.
package conddb // import "github.com/go-lpc/amp/conddb"

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-lpc/amp/cs35l35"
	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"

	now = time.Now
)

// DB exposes convenience methods to easily retrieve board configurations
// and to record fault events into the amplifier database.
type DB struct {
	db   *sql.DB
	name string // name of the amplifier database
}

// Board describes how an amplifier is wired on a board.
type Board struct {
	Name      string
	Bus       int   // I2C bus number
	Addr      uint8 // I2C address of the amplifier
	ResetGPIO int   // reset line, -1 when not wired
	IRQGPIO   int   // interrupt line, -1 when not wired

	Config cs35l35.Config
}

// FaultRecord is a fault event as stored in the database.
type FaultRecord struct {
	Board    string
	Time     time.Time
	Fault    string
	Critical bool
	Asserted bool
	Released bool
}

// Open opens a connection to the amplifier database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
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

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// Board returns the latest description of the named board.
func (db *DB) Board(ctx context.Context, name string) (Board, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var brd Board
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT name, i2c_bus, i2c_addr, reset_gpio, irq_gpio, config
FROM amp_boards
WHERE name=?
ORDER BY datetime DESC LIMIT 1
`,
		name,
	)
	if err != nil {
		return brd, fmt.Errorf("conddb: could not query board %q: %w", name, err)
	}
	defer rows.Close()

	var (
		found = false
		cfg   []byte
	)
	for rows.Next() {
		err = rows.Scan(
			&brd.Name, &brd.Bus, &brd.Addr,
			&brd.ResetGPIO, &brd.IRQGPIO,
			&cfg,
		)
		if err != nil {
			return brd, fmt.Errorf("conddb: could not scan board %q: %w", name, err)
		}
		found = true
	}

	if err := rows.Err(); err != nil {
		return brd, fmt.Errorf("conddb: could not scan db for board %q: %w", name, err)
	}

	if err := ctx.Err(); err != nil {
		return brd, fmt.Errorf("conddb: context error while retrieving board %q: %w", name, err)
	}

	if !found {
		return brd, fmt.Errorf("conddb: no board %q", name)
	}

	if len(cfg) > 0 {
		err = json.Unmarshal(cfg, &brd.Config)
		if err != nil {
			return brd, fmt.Errorf("conddb: could not decode configuration of board %q: %w", name, err)
		}
	}

	return brd, nil
}

// LogFault records a fault event raised by the amplifier of the named board.
func (db *DB) LogFault(ctx context.Context, board string, ev cs35l35.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := db.db.ExecContext(
		ctx,
		`
INSERT INTO amp_faults (board, datetime, fault, critical, asserted, released)
VALUES (?, ?, ?, ?, ?, ?)
`,
		board, now().UTC(), ev.Fault.String(),
		ev.Critical, ev.Asserted, ev.Released,
	)
	if err != nil {
		return fmt.Errorf("conddb: could not log fault %q of board %q: %w", ev, board, err)
	}

	return nil
}

// Faults returns the n most recent fault events of the named board,
// most recent first.
func (db *DB) Faults(ctx context.Context, board string, n int) ([]FaultRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var recs []FaultRecord
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT board, datetime, fault, critical, asserted, released
FROM amp_faults
WHERE board=?
ORDER BY datetime DESC LIMIT ?
`,
		board, n,
	)
	if err != nil {
		return recs, fmt.Errorf("conddb: could not query faults of board %q: %w", board, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec FaultRecord
		err = rows.Scan(
			&rec.Board, &rec.Time, &rec.Fault,
			&rec.Critical, &rec.Asserted, &rec.Released,
		)
		if err != nil {
			return recs, fmt.Errorf("conddb: could not scan faults of board %q: %w", board, err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return recs, fmt.Errorf("conddb: could not scan db for faults of board %q: %w", board, err)
	}

	if err := ctx.Err(); err != nil {
		return recs, fmt.Errorf("conddb: context error while retrieving faults of board %q: %w", board, err)
	}

	return recs, nil
}
