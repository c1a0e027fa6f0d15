// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import (
	"context"
	"database/sql/driver"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/amp/cs35l35"
	"github.com/go-lpc/amp/internal/fakedb"
)

func init() {
	drvName = "fakedb"
}

func TestOpen(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()
}

func TestQueryContext(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	const queryBoards = "SELECT name FROM amp_boards ORDER BY datetime DESC LIMIT 1"

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"name"},
		Values: [][]driver.Value{
			{"lpc-amp-01"},
		},
	}, func(ctx context.Context) error {
		rows, err := db.QueryContext(ctx, queryBoards)
		if err != nil {
			t.Fatalf("could not execute query %q: %+v", queryBoards, err)
		}
		defer rows.Close()

		var name string
		for rows.Next() {
			err = rows.Scan(&name)
			if err != nil {
				t.Fatalf("could not scan board name: %+v", err)
			}
		}

		if err := rows.Err(); err != nil {
			t.Fatalf("could not scan board name: %+v", err)
		}

		if got, want := name, "lpc-amp-01"; got != want {
			t.Fatalf("invalid board name: got=%q, want=%q", got, want)
		}
		return nil
	})
}

func TestBoard(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	names := []string{
		"name", "i2c_bus", "i2c_addr", "reset_gpio", "irq_gpio", "config",
	}

	for _, tc := range []struct {
		name string
		row  []driver.Value
		want Board
	}{
		{
			name: "full",
			row: []driver.Value{
				"lpc-amp-01", int64(1), int64(0x40), int64(17), int64(4),
				[]byte(`{
	"boost-ctl": 51,
	"stereo-config": true,
	"classh-internal-algo": {"enable": true, "classh-bst-max-limit": 2},
	"monitor-signal-format": {
		"present": true,
		"imon": {"depth": 1, "loc": 2, "frame": 3}
	}
}`),
			},
			want: Board{
				Name: "lpc-amp-01", Bus: 1, Addr: 0x40, ResetGPIO: 17, IRQGPIO: 4,
				Config: cs35l35.Config{
					BoostVCtl: 51,
					Stereo:    true,
					ClassH:    cs35l35.ClassH{Enable: true, BoostMaxLimit: 2},
					Monitor: cs35l35.MonitorConfig{
						Present: true,
						IMon:    &cs35l35.MonitorFormat{Depth: 1, Loc: 2, Frame: 3},
					},
				},
			},
		},
		{
			name: "no-lines",
			row: []driver.Value{
				"lpc-amp-02", int64(0), int64(0x41), int64(-1), int64(-1), []byte(nil),
			},
			want: Board{
				Name: "lpc-amp-02", Bus: 0, Addr: 0x41, ResetGPIO: -1, IRQGPIO: -1,
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_ = fakedb.Run(context.Background(), fakedb.Rows{
				Names:  names,
				Values: [][]driver.Value{tc.row},
			}, func(ctx context.Context) error {
				got, err := db.Board(ctx, tc.want.Name)
				if err != nil {
					t.Fatalf("could not retrieve board: %+v", err)
				}
				if !reflect.DeepEqual(got, tc.want) {
					t.Fatalf("invalid board:\ngot= %+v\nwant=%+v", got, tc.want)
				}
				return nil
			})
		})
	}
}

func TestBoardErrors(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	names := []string{
		"name", "i2c_bus", "i2c_addr", "reset_gpio", "irq_gpio", "config",
	}

	for _, tc := range []struct {
		name string
		rows [][]driver.Value
		want string
	}{
		{
			name: "missing",
			want: `conddb: no board "lpc-amp-01"`,
		},
		{
			name: "bad-config",
			rows: [][]driver.Value{
				{"lpc-amp-01", int64(1), int64(0x40), int64(-1), int64(-1), []byte("{")},
			},
			want: `conddb: could not decode configuration of board "lpc-amp-01"`,
		},
		{
			name: "bad-addr",
			rows: [][]driver.Value{
				{"lpc-amp-01", int64(1), int64(0x400), int64(-1), int64(-1), []byte(nil)},
			},
			want: `conddb: could not scan board "lpc-amp-01"`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_ = fakedb.Run(context.Background(), fakedb.Rows{
				Names:  names,
				Values: tc.rows,
			}, func(ctx context.Context) error {
				_, err := db.Board(ctx, "lpc-amp-01")
				if err == nil {
					t.Fatalf("expected an error")
				}
				if got := err.Error(); !strings.HasPrefix(got, tc.want) {
					t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, tc.want)
				}
				return nil
			})
		})
	}
}

func TestLogFault(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	ts := time.Date(2022, 3, 14, 15, 9, 26, 0, time.UTC)
	orig := now
	now = func() time.Time { return ts }
	defer func() { now = orig }()

	_ = fakedb.Run(context.Background(), fakedb.Rows{}, func(ctx context.Context) error {
		err := db.LogFault(ctx, "lpc-amp-01", cs35l35.Event{
			Fault:    cs35l35.FaultOverTempError,
			Critical: true,
		})
		if err != nil {
			t.Fatalf("could not log fault: %+v", err)
		}

		execs := fakedb.Execs()
		if got, want := len(execs), 1; got != want {
			t.Fatalf("invalid number of statements: got=%d, want=%d", got, want)
		}
		if !strings.Contains(execs[0].Query, "INSERT INTO amp_faults") {
			t.Fatalf("invalid statement: %q", execs[0].Query)
		}
		want := []driver.Value{
			"lpc-amp-01", ts, cs35l35.FaultOverTempError.String(),
			true, false, false,
		}
		if got := execs[0].Args; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid arguments:\ngot= %v\nwant=%v", got, want)
		}
		return nil
	})

	errDB := errors.New("db is down")
	_ = fakedb.RunErr(context.Background(), errDB, func(ctx context.Context) error {
		err := db.LogFault(ctx, "lpc-amp-01", cs35l35.Event{Fault: cs35l35.FaultBrownout})
		if !errors.Is(err, errDB) {
			t.Fatalf("invalid error: got=%+v, want=%+v", err, errDB)
		}
		return nil
	})
}

func TestFaults(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	t0 := time.Date(2022, 3, 14, 15, 9, 26, 0, time.UTC)
	want := []FaultRecord{
		{"lpc-amp-01", t0.Add(time.Minute), "over-temperature error", true, false, false},
		{"lpc-amp-01", t0, "amplifier short", false, false, true},
	}

	var rows [][]driver.Value
	for _, rec := range want {
		rows = append(rows, []driver.Value{
			rec.Board, rec.Time, rec.Fault, rec.Critical, rec.Asserted, rec.Released,
		})
	}

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names:  []string{"board", "datetime", "fault", "critical", "asserted", "released"},
		Values: rows,
	}, func(ctx context.Context) error {
		got, err := db.Faults(ctx, "lpc-amp-01", 10)
		if err != nil {
			t.Fatalf("could not retrieve faults: %+v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid faults:\ngot= %+v\nwant=%+v", got, want)
		}
		return nil
	})
}
