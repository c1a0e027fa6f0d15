// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command amp-srv starts a TDAQ server driving the amplifier of a board.
//
// Usage: amp-srv [tdaq options] <board> [db-name]
//
// The board wiring and configuration are read from the conddb database
// (default: "amp"). Fault events are logged back into that database.
package main // import "github.com/go-lpc/amp/cmd/amp-srv"

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/amp"
	"github.com/go-lpc/amp/conddb"
	"github.com/go-lpc/amp/cs35l35"
	"github.com/go-lpc/amp/internal/board"
)

func main() {
	cmd := flags.New()
	if len(cmd.Args) < 1 {
		log.Fatalf("missing board name")
	}

	dbname := "amp"
	if len(cmd.Args) > 1 {
		dbname = cmd.Args[1]
	}

	if v, _ := amp.Version(); v != "" {
		log.Printf("amp-srv version: %s", v)
	}

	dev := newServer(cmd.Args[0], dbname, os.Stdout)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type msgStream interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type boardDB interface {
	Board(ctx context.Context, name string) (conddb.Board, error)
	LogFault(ctx context.Context, board string, ev cs35l35.Event) error
	Close() error
}

type amplifier interface {
	PowerUp(pdm bool) error
	PowerDown() error
	ResetFaults()
	Run(ctx context.Context) error
	Close() error
}

type boardAmp struct {
	*board.Amp
}

func (amp boardAmp) PowerUp(pdm bool) error { return amp.Dev.PowerUp(pdm) }
func (amp boardAmp) PowerDown() error       { return amp.Dev.PowerDown() }
func (amp boardAmp) ResetFaults()           { amp.Dev.Monitor().Reset() }

type server struct {
	board  string
	dbname string
	out    io.Writer

	openDB  func(dbname string) (boardDB, error)
	openAmp func(brd conddb.Board, opts ...cs35l35.Option) (amplifier, error)

	mu  sync.Mutex
	db  boardDB
	amp amplifier
	mon *monitor
}

// monitor services the amplifier interrupts from /config until /quit,
// so power-down sequences always see their completion interrupt.
type monitor struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func startMonitor(amp amplifier) *monitor {
	ctx, cancel := context.WithCancel(context.Background())
	mon := &monitor{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(mon.done)
		mon.err = amp.Run(ctx)
	}()
	return mon
}

func (mon *monitor) stop() error {
	mon.cancel()
	<-mon.done
	return mon.err
}

func newServer(name, dbname string, out io.Writer) *server {
	return &server{
		board:   name,
		dbname:  dbname,
		out:     out,
		openDB:  openDB,
		openAmp: openAmp,
	}
}

func openDB(dbname string) (boardDB, error) {
	return conddb.Open(dbname)
}

func openAmp(brd conddb.Board, opts ...cs35l35.Option) (amplifier, error) {
	amp, err := board.Open(brd, opts...)
	if err != nil {
		return nil, err
	}
	return boardAmp{amp}, nil
}

func (srv *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	return srv.config(ctx.Ctx, ctx.Msg)
}

func (srv *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	return srv.initialize(ctx.Msg)
}

func (srv *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	return srv.initialize(ctx.Msg)
}

func (srv *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return srv.start(ctx.Msg, req.Body)
}

func (srv *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	return srv.stop(ctx.Msg)
}

func (srv *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return srv.quit()
}

func (srv *server) run(ctx tdaq.Context) error {
	return srv.watch(ctx.Ctx)
}

// watch reports a failure of the interrupt monitor during a run.
func (srv *server) watch(ctx context.Context) error {
	srv.mu.Lock()
	mon := srv.mon
	srv.mu.Unlock()

	if mon == nil {
		return fmt.Errorf("amplifier of board %q not configured", srv.board)
	}

	select {
	case <-ctx.Done():
		return nil
	case <-mon.done:
		if mon.err != nil {
			return fmt.Errorf("amplifier monitor of board %q failed: %w", srv.board, mon.err)
		}
		return fmt.Errorf("amplifier monitor of board %q stopped", srv.board)
	}
}

func (srv *server) config(ctx context.Context, msg msgStream) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	err := srv.closeLocked()
	if err != nil {
		msg.Errorf("could not release previous configuration: %+v", err)
	}

	db, err := srv.openDB(srv.dbname)
	if err != nil {
		msg.Errorf("could not open db %q: %+v", srv.dbname, err)
		return fmt.Errorf("could not open db %q: %w", srv.dbname, err)
	}

	brd, err := db.Board(ctx, srv.board)
	if err != nil {
		_ = db.Close()
		msg.Errorf("could not retrieve board %q: %+v", srv.board, err)
		return fmt.Errorf("could not retrieve board %q: %w", srv.board, err)
	}
	msg.Infof("board %q: i2c-%d addr=0x%02x reset=%d irq=%d",
		brd.Name, brd.Bus, brd.Addr, brd.ResetGPIO, brd.IRQGPIO,
	)

	amp, err := srv.openAmp(brd,
		cs35l35.WithLogger(log.New(srv.out, "cs35l35: ", 0)),
		cs35l35.WithFaultHandler(srv.logFault(db, msg)),
	)
	if err != nil {
		_ = db.Close()
		msg.Errorf("could not open amplifier of board %q: %+v", srv.board, err)
		return fmt.Errorf("could not open amplifier of board %q: %w", srv.board, err)
	}

	srv.db = db
	srv.amp = amp
	srv.mon = startMonitor(amp)
	return nil
}

func (srv *server) logFault(db boardDB, msg msgStream) func(ev cs35l35.Event) {
	return func(ev cs35l35.Event) {
		switch {
		case ev.Critical:
			msg.Errorf("fault: %v", ev)
		default:
			msg.Infof("fault: %v", ev)
		}
		err := db.LogFault(context.Background(), srv.board, ev)
		if err != nil {
			msg.Errorf("could not log fault %q: %+v", ev, err)
		}
	}
}

func (srv *server) device() (amplifier, error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.amp == nil {
		return nil, fmt.Errorf("amplifier of board %q not configured", srv.board)
	}
	return srv.amp, nil
}

func (srv *server) initialize(msg msgStream) error {
	amp, err := srv.device()
	if err != nil {
		msg.Errorf("could not initialize: %+v", err)
		return err
	}
	amp.ResetFaults()
	return nil
}

func (srv *server) start(msg msgStream, mode []byte) error {
	amp, err := srv.device()
	if err != nil {
		msg.Errorf("could not start: %+v", err)
		return err
	}

	var pdm bool
	switch string(bytes.TrimSpace(mode)) {
	case "", "pcm":
	case "pdm":
		pdm = true
	default:
		return fmt.Errorf("invalid stream mode %q", mode)
	}

	err = amp.PowerUp(pdm)
	if err != nil {
		msg.Errorf("could not power up amplifier: %+v", err)
		return fmt.Errorf("could not power up amplifier: %w", err)
	}
	return nil
}

func (srv *server) stop(msg msgStream) error {
	amp, err := srv.device()
	if err != nil {
		msg.Errorf("could not stop: %+v", err)
		return err
	}

	err = amp.PowerDown()
	if err != nil {
		msg.Errorf("could not power down amplifier: %+v", err)
		return fmt.Errorf("could not power down amplifier: %w", err)
	}
	return nil
}

func (srv *server) quit() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.closeLocked()
}

func (srv *server) closeLocked() error {
	var err error
	if srv.amp != nil {
		if e := srv.amp.PowerDown(); e != nil {
			err = fmt.Errorf("could not power down amplifier: %w", e)
		}
		if e := srv.mon.stop(); e != nil && err == nil {
			err = fmt.Errorf("could not monitor amplifier: %w", e)
		}
		srv.mon = nil
		if e := srv.amp.Close(); e != nil && err == nil {
			err = fmt.Errorf("could not close amplifier: %w", e)
		}
		srv.amp = nil
	}
	if srv.db != nil {
		if e := srv.db.Close(); e != nil && err == nil {
			err = fmt.Errorf("could not close db: %w", e)
		}
		srv.db = nil
	}
	return err
}
