// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gpio drives GPIO lines through the sysfs interface.
package gpio // import "github.com/go-lpc/amp/internal/gpio"

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

var sysfs = "/sys/class/gpio"

// Edge selects the signal edges raising a poll event on an input line.
type Edge string

const (
	EdgeNone    Edge = "none"
	EdgeRising  Edge = "rising"
	EdgeFalling Edge = "falling"
	EdgeBoth    Edge = "both"
)

// Line is an exported GPIO line.
type Line struct {
	pin int
	f   *os.File
}

func pinDir(pin int) string {
	return filepath.Join(sysfs, "gpio"+strconv.Itoa(pin))
}

func export(pin int) error {
	_, err := os.Stat(pinDir(pin))
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.WriteFile(filepath.Join(sysfs, "export"), []byte(strconv.Itoa(pin)), 0)
}

func setAttr(pin int, name, v string) error {
	return os.WriteFile(filepath.Join(pinDir(pin), name), []byte(v), 0)
}

func open(pin int) (*Line, error) {
	f, err := os.OpenFile(filepath.Join(pinDir(pin), "value"), os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("gpio: could not open value of pin %d: %w", pin, err)
	}
	return &Line{pin: pin, f: f}, nil
}

// Output exports pin as an output line driven at v.
func Output(pin, v int) (*Line, error) {
	err := export(pin)
	if err != nil {
		return nil, fmt.Errorf("gpio: could not export pin %d: %w", pin, err)
	}

	// "low" and "high" configure the direction and the initial level at once.
	dir := "low"
	if v != 0 {
		dir = "high"
	}
	err = setAttr(pin, "direction", dir)
	if err != nil {
		return nil, fmt.Errorf("gpio: could not set direction of pin %d: %w", pin, err)
	}

	return open(pin)
}

// Input exports pin as an input line signaling the given edges.
func Input(pin int, edge Edge) (*Line, error) {
	err := export(pin)
	if err != nil {
		return nil, fmt.Errorf("gpio: could not export pin %d: %w", pin, err)
	}

	err = setAttr(pin, "direction", "in")
	if err != nil {
		return nil, fmt.Errorf("gpio: could not set direction of pin %d: %w", pin, err)
	}

	err = setAttr(pin, "edge", string(edge))
	if err != nil {
		return nil, fmt.Errorf("gpio: could not set edge of pin %d: %w", pin, err)
	}

	return open(pin)
}

// Pin returns the GPIO number of the line.
func (l *Line) Pin() int { return l.pin }

// SetValue drives the line low (0) or high (any other value).
func (l *Line) SetValue(v int) error {
	b := []byte("0")
	if v != 0 {
		b[0] = '1'
	}
	_, err := l.f.WriteAt(b, 0)
	if err != nil {
		return fmt.Errorf("gpio: could not set value of pin %d: %w", l.pin, err)
	}
	return nil
}

// Value returns the current level of the line.
func (l *Line) Value() (int, error) {
	var buf [1]byte
	_, err := l.f.ReadAt(buf[:], 0)
	if err != nil {
		return 0, fmt.Errorf("gpio: could not read value of pin %d: %w", l.pin, err)
	}
	switch buf[0] {
	case '0':
		return 0, nil
	case '1':
		return 1, nil
	}
	return 0, fmt.Errorf("gpio: invalid value %q for pin %d", buf[0], l.pin)
}

// Close releases the line. The pin stays exported.
func (l *Line) Close() error {
	return l.f.Close()
}

// poll waits for an edge event on the line, for at most timeout.
func (l *Line) poll(timeout time.Duration) error {
	fds := []unix.PollFd{{
		Fd:     int32(l.f.Fd()),
		Events: unix.POLLPRI | unix.POLLERR,
	}}
	for {
		_, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err
	}
}

// IRQ turns a level-triggered interrupt line into a stream of events.
type IRQ struct {
	Line      *Line
	ActiveLow bool
	Interval  time.Duration // maximum time between two level checks
}

func (irq IRQ) asserted() (bool, error) {
	v, err := irq.Line.Value()
	if err != nil {
		return false, err
	}
	if irq.ActiveLow {
		return v == 0, nil
	}
	return v != 0, nil
}

// Run sends an event on out each time the line is found asserted.
// The send blocks until the consumer takes the event, so a line stays
// acknowledged until the consumer has serviced it.
// Run returns when ctx is done.
func (irq IRQ) Run(ctx context.Context, out chan<- struct{}) error {
	interval := irq.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		ok, err := irq.asserted()
		if err != nil {
			return fmt.Errorf("gpio: could not read interrupt line: %w", err)
		}

		if ok {
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			continue
		}

		err = irq.Line.poll(interval)
		if err != nil {
			return fmt.Errorf("gpio: could not poll interrupt line %d: %w", irq.Line.pin, err)
		}
	}
}
