// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package board wires a CS35L35 amplifier to the I2C bus and GPIO lines
// of a board.
package board // import "github.com/go-lpc/amp/internal/board"

import (
	"context"
	"fmt"
	"time"

	"github.com/go-lpc/amp/conddb"
	"github.com/go-lpc/amp/cs35l35"
	"github.com/go-lpc/amp/internal/gpio"
	"github.com/go-lpc/amp/regmap"
	"golang.org/x/sync/errgroup"
)

type busConn interface {
	regmap.Bus
	Close() error
}

type resetLine interface {
	SetValue(v int) error
	Close() error
}

type irqSource interface {
	Run(ctx context.Context, out chan<- struct{}) error
	Close() error
}

var (
	openBus   = openBusImpl
	openReset = openResetImpl
	openIRQ   = openIRQImpl

	pollInterval = 100 * time.Millisecond
)

func openBusImpl(bus int, addr uint8) (busConn, error) {
	return regmap.OpenSMBus(bus, addr)
}

func openResetImpl(pin int) (resetLine, error) {
	// hold the chip in reset until it is attached.
	return gpio.Output(pin, 0)
}

type gpioIRQ struct {
	gpio.IRQ
}

func (irq gpioIRQ) Close() error { return irq.Line.Close() }

func openIRQImpl(pin int) (irqSource, error) {
	line, err := gpio.Input(pin, gpio.EdgeFalling)
	if err != nil {
		return nil, err
	}
	return gpioIRQ{gpio.IRQ{Line: line, ActiveLow: true}}, nil
}

// poller stands in for a missing interrupt line.
type poller struct {
	freq time.Duration
}

func (p poller) Run(ctx context.Context, out chan<- struct{}) error {
	tick := time.NewTicker(p.freq)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (poller) Close() error { return nil }

// Amp is an amplifier attached on a board.
type Amp struct {
	Board conddb.Board
	Dev   *cs35l35.Device

	bus   busConn
	reset resetLine
	irq   irqSource
}

// Open attaches the amplifier described by brd.
// The board configuration and reset line are handed to the device before
// opts, so opts may override them.
func Open(brd conddb.Board, opts ...cs35l35.Option) (*Amp, error) {
	amp := &Amp{Board: brd}

	bus, err := openBus(brd.Bus, brd.Addr)
	if err != nil {
		return nil, fmt.Errorf("board: could not open bus of %q: %w", brd.Name, err)
	}
	amp.bus = bus

	all := []cs35l35.Option{cs35l35.WithConfig(brd.Config)}
	if brd.ResetGPIO >= 0 {
		reset, err := openReset(brd.ResetGPIO)
		if err != nil {
			_ = amp.Close()
			return nil, fmt.Errorf("board: could not open reset line of %q: %w", brd.Name, err)
		}
		amp.reset = reset
		all = append(all, cs35l35.WithResetLine(reset))
	}

	switch {
	case brd.IRQGPIO >= 0:
		irq, err := openIRQ(brd.IRQGPIO)
		if err != nil {
			_ = amp.Close()
			return nil, fmt.Errorf("board: could not open interrupt line of %q: %w", brd.Name, err)
		}
		amp.irq = irq
	default:
		amp.irq = poller{freq: pollInterval}
	}

	dev, err := cs35l35.New(bus, append(all, opts...)...)
	if err != nil {
		_ = amp.Close()
		return nil, fmt.Errorf("board: could not attach amplifier of %q: %w", brd.Name, err)
	}
	amp.Dev = dev

	return amp, nil
}

// Run services the amplifier interrupts until ctx is done.
func (amp *Amp) Run(ctx context.Context) error {
	var (
		irq      = make(chan struct{})
		grp, gtx = errgroup.WithContext(ctx)
	)
	grp.Go(func() error {
		return amp.irq.Run(gtx, irq)
	})
	grp.Go(func() error {
		return amp.Dev.Monitor().Run(gtx, irq)
	})

	err := grp.Wait()
	if err != nil {
		return fmt.Errorf("board: could not monitor amplifier of %q: %w", amp.Board.Name, err)
	}
	return nil
}

// Close puts the amplifier back into reset and releases the board lines.
func (amp *Amp) Close() error {
	var err error
	if amp.irq != nil {
		if e := amp.irq.Close(); e != nil && err == nil {
			err = fmt.Errorf("board: could not close interrupt line: %w", e)
		}
	}
	if amp.reset != nil {
		if e := amp.reset.SetValue(0); e != nil && err == nil {
			err = fmt.Errorf("board: could not assert reset line: %w", e)
		}
		if e := amp.reset.Close(); e != nil && err == nil {
			err = fmt.Errorf("board: could not close reset line: %w", e)
		}
	}
	if amp.bus != nil {
		if e := amp.bus.Close(); e != nil && err == nil {
			err = fmt.Errorf("board: could not close bus: %w", e)
		}
	}
	return err
}
