// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command amp-ctl is an interactive shell to control a CS35L35 amplifier.
//
// Usage: amp-ctl [options]
//
// ex:
//
//	$> amp-ctl -bus=1 -addr=0x40 -reset=17 -irq=4
//	$> amp-ctl -db=amp -board=lpc-amp-01 -mail
//	amp> sysclk mclk 12288000
//	amp> sclk 3072000
//	amp> hw-params 48000 24
//	amp> up pcm
//	amp> state
//	amp> down
//	amp> quit
package main // import "github.com/go-lpc/amp/cmd/amp-ctl"

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-lpc/amp/conddb"
	"github.com/go-lpc/amp/cs35l35"
	"github.com/go-lpc/amp/internal/board"
	"github.com/peterh/liner"
	"golang.org/x/sync/errgroup"
	mail "gopkg.in/gomail.v2"
)

func main() {
	var (
		bus    = flag.Int("bus", 1, "I2C bus number of the amplifier")
		addr   = flag.Uint("addr", 0x40, "I2C address of the amplifier")
		reset  = flag.Int("reset", -1, "GPIO of the reset line (-1: none)")
		irq    = flag.Int("irq", -1, "GPIO of the interrupt line (-1: poll)")
		dbname = flag.String("db", "", "name of the board database")
		name   = flag.String("board", "", "name of the board to load from the database")
		alert  = flag.Bool("mail", false, "send a mail alert on critical faults")
	)

	flag.Parse()

	log.SetPrefix("amp-ctl: ")
	log.SetFlags(0)

	if *addr > 0x7f {
		log.Fatalf("invalid I2C address 0x%x", *addr)
	}

	brd := conddb.Board{
		Name:      "local",
		Bus:       *bus,
		Addr:      uint8(*addr),
		ResetGPIO: *reset,
		IRQGPIO:   *irq,
	}

	err := run(brd, *dbname, *name, *alert)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(brd conddb.Board, dbname, name string, alert bool) error {
	var db *conddb.DB
	if dbname != "" {
		var err error
		db, err = conddb.Open(dbname)
		if err != nil {
			return fmt.Errorf("could not open board db: %w", err)
		}
		defer db.Close()

		if name != "" {
			brd, err = db.Board(context.Background(), name)
			if err != nil {
				return fmt.Errorf("could not load board %q: %w", name, err)
			}
		}
	}

	faults := faultHandler{
		board: brd.Name,
		out:   os.Stdout,
		alert: alert,
	}
	if db != nil {
		faults.db = db
	}

	amp, err := board.Open(brd,
		cs35l35.WithLogger(log.New(os.Stdout, "cs35l35: ", 0)),
		cs35l35.WithFaultHandler(faults.handle),
	)
	if err != nil {
		return fmt.Errorf("could not open amplifier: %w", err)
	}
	defer amp.Close()

	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)
	term.SetCompleter(complete)

	sh := &shell{dev: amp.Dev, out: os.Stdout, db: faults.db, board: brd.Name}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return amp.Run(ctx)
	})
	grp.Go(func() error {
		defer cancel()
		return sh.loop(ctx, term)
	})

	return grp.Wait()
}

type faultLogger interface {
	LogFault(ctx context.Context, board string, ev cs35l35.Event) error
	Faults(ctx context.Context, board string, n int) ([]conddb.FaultRecord, error)
}

type faultHandler struct {
	board string
	out   io.Writer
	db    faultLogger
	alert bool

	mail func(board string, ev cs35l35.Event)
}

func (h faultHandler) handle(ev cs35l35.Event) {
	fmt.Fprintf(h.out, "\nfault: %v\n", ev)
	if h.db != nil {
		err := h.db.LogFault(context.Background(), h.board, ev)
		if err != nil {
			log.Printf("could not log fault %q: %+v", ev, err)
		}
	}
	if !h.alert || !ev.Critical {
		return
	}
	send := h.mail
	if send == nil {
		send = alertMail
	}
	go send(h.board, ev)
}

var (
	alertMailUsr  = os.Getenv("MAIL_USERNAME")
	alertMailPwd  = os.Getenv("MAIL_PASSWORD")
	alertMailSrv  = os.Getenv("MAIL_SERVER")
	alertMailPort = atoi(os.Getenv("MAIL_PORT"))
	alertMailTgts = strings.Split(os.Getenv("MAIL_TGTS"), ",")
)

func alertMail(board string, ev cs35l35.Event) {
	if alertMailUsr == "" || alertMailPwd == "" ||
		alertMailSrv == "" || alertMailPort == 0 ||
		len(alertMailTgts) == 0 || alertMailTgts[0] == "" {
		log.Printf("could not send mail alert: missing credentials")
		return
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", alertMailUsr)
	msg.SetHeader("Bcc", alertMailTgts...)
	msg.SetHeader("Subject", fmt.Sprintf("[amp-ctl] fault alert: %q", board))
	msg.SetBody("text/plain", fmt.Sprintf("board: %q\nfault: %v\n", board, ev))

	dial := mail.NewDialer(alertMailSrv, alertMailPort, alertMailUsr, alertMailPwd)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	err := dial.DialAndSend(msg)
	if err != nil {
		log.Printf("could not send mail alert: %+v", err)
	}
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

var errQuit = errors.New("quit")
