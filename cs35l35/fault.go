// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cs35l35

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/go-lpc/amp/cs35l35/internal/regs"
	"github.com/go-lpc/amp/regmap"
)

// Fault is a protection or advisory condition reported by the chip.
type Fault int

const (
	FaultCalibration Fault = iota
	FaultAmpShort
	FaultOverTempWarning
	FaultOverTempError
	FaultBoostOverVoltage
	FaultBoostInductorShort
	FaultBrownout
	FaultVMONOverflow
	FaultIMONOverflow

	nFaults
)

var faultNames = [...]string{
	FaultCalibration:        "calibration error",
	FaultAmpShort:           "amplifier short",
	FaultOverTempWarning:    "over-temperature warning",
	FaultOverTempError:      "over-temperature error",
	FaultBoostOverVoltage:   "boost over-voltage",
	FaultBoostInductorShort: "boost inductor short",
	FaultBrownout:           "brown-out",
	FaultVMONOverflow:       "VMON overflow",
	FaultIMONOverflow:       "IMON overflow",
}

func (f Fault) String() string {
	if 0 <= f && f < nFaults {
		return faultNames[f]
	}
	return fmt.Sprintf("Fault(%d)", int(f))
}

// Critical reports whether f shuts the amplifier down.
func (f Fault) Critical() bool {
	return f == FaultBoostOverVoltage || f == FaultBoostInductorShort
}

// FaultState is the latch state of a fault class.
type FaultState int

const (
	FaultClear FaultState = iota
	FaultLatched
	FaultPendingRelease
	FaultShutDown
)

func (s FaultState) String() string {
	switch s {
	case FaultClear:
		return "clear"
	case FaultLatched:
		return "latched"
	case FaultPendingRelease:
		return "pending-release"
	case FaultShutDown:
		return "shut-down"
	}
	return fmt.Sprintf("FaultState(%d)", int(s))
}

// Event describes a fault condition observed by the monitor.
type Event struct {
	Fault    Fault
	Critical bool // the amplifier was powered down
	Asserted bool // the condition was still present when handled
	Released bool // the latch was released
}

func (ev Event) String() string {
	switch {
	case ev.Critical:
		return fmt.Sprintf("%v: amplifier shut down", ev.Fault)
	case ev.Released:
		return fmt.Sprintf("%v: released", ev.Fault)
	case ev.Asserted:
		return fmt.Sprintf("%v: asserted", ev.Fault)
	}
	return ev.Fault.String()
}

var releasable = []struct {
	fault Fault
	bit   uint8 // INT_STATUS_1
	rls   uint8 // PROT_RELEASE_CTL
}{
	{FaultCalibration, regs.CAL_ERR, regs.CAL_ERR_RLS},
	{FaultAmpShort, regs.AMP_SHORT, regs.SHORT_RLS},
	{FaultOverTempWarning, regs.OTW, regs.OTW_RLS},
	{FaultOverTempError, regs.OTE, regs.OTE_RLS},
}

// Monitor handles the interrupts raised by the chip.
//
// Monitor only touches the register map and the power-down completion;
// it never takes the device lock, so it may run concurrently with the
// clock and power sequencers.
type Monitor struct {
	msg     *log.Logger
	regs    *regmap.Map
	pdnDone *completion
	handler func(Event)

	mu     sync.Mutex
	states [nFaults]FaultState
}

func newMonitor(msg *log.Logger, m *regmap.Map, pdnDone *completion, handler func(Event)) *Monitor {
	return &Monitor{
		msg:     msg,
		regs:    m,
		pdnDone: pdnDone,
		handler: handler,
	}
}

// State returns the latch state of fault f.
func (mon *Monitor) State(f Fault) FaultState {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	if f < 0 || f >= nFaults {
		return FaultClear
	}
	return mon.states[f]
}

// Reset clears every fault state, including critical shut-downs.
func (mon *Monitor) Reset() {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	for i := range mon.states {
		mon.states[i] = FaultClear
	}
}

func (mon *Monitor) setState(f Fault, s FaultState) {
	mon.mu.Lock()
	mon.states[f] = s
	mon.mu.Unlock()
}

func (mon *Monitor) emit(ev Event) {
	if mon.handler == nil {
		return
	}
	mon.handler(ev)
}

// Run handles an interrupt each time a value is received from irq.
// Run returns when ctx is done or irq is closed.
func (mon *Monitor) Run(ctx context.Context, irq <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-irq:
			if !ok {
				return nil
			}
			_, err := mon.Handle()
			if err != nil {
				mon.msg.Printf("could not handle interrupt: %+v", err)
			}
		}
	}
}

// Handle services one interrupt.
// Handle reports false when no unmasked condition is pending, as happens
// on a shared interrupt line.
func (mon *Monitor) Handle() (bool, error) {
	var sticky, masks [4]uint8

	// reading the sticky registers acknowledges the latches.
	for i := 3; i >= 0; i-- {
		v, err := mon.regs.Read(regs.INT_STATUS_1 + uint8(i))
		if err != nil {
			return false, fmt.Errorf("cs35l35: could not read interrupt status %d: %w", i+1, err)
		}
		sticky[i] = v
	}
	for i := 3; i >= 0; i-- {
		v, err := mon.regs.Read(regs.INT_MASK_1 + uint8(i))
		if err != nil {
			return false, fmt.Errorf("cs35l35: could not read interrupt mask %d: %w", i+1, err)
		}
		masks[i] = v
	}

	pending := false
	for i := range sticky {
		if sticky[i]&^masks[i] != 0 {
			pending = true
			break
		}
	}
	if !pending {
		return false, nil
	}

	if sticky[1]&regs.PDN_DONE != 0 {
		mon.pdnDone.complete()
	}

	// currently asserted conditions.
	current, err := mon.regs.Read(regs.INT_STATUS_1)
	if err != nil {
		return true, fmt.Errorf("cs35l35: could not read interrupt status 1: %w", err)
	}

	var errs []error
	for _, r := range releasable {
		if sticky[0]&r.bit == 0 {
			continue
		}
		err := mon.release(r.fault, r.rls, current&r.bit != 0)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if sticky[2]&regs.BST_HIGH != 0 {
		errs = append(errs, mon.shutdown(FaultBoostOverVoltage))
	}
	if sticky[2]&regs.LBST_SHORT != 0 {
		errs = append(errs, mon.shutdown(FaultBoostInductorShort))
	}

	if sticky[1]&regs.VPBR_ERR != 0 {
		mon.advise(FaultBrownout)
	}
	if sticky[3]&regs.VMON_OVFL != 0 {
		mon.advise(FaultVMONOverflow)
	}
	if sticky[3]&regs.IMON_OVFL != 0 {
		mon.advise(FaultIMONOverflow)
	}

	if err := errors.Join(errs...); err != nil {
		return true, err
	}
	return true, nil
}

// release acknowledges a latched fault once its condition cleared.
func (mon *Monitor) release(f Fault, rls uint8, asserted bool) error {
	if asserted {
		mon.msg.Printf("%v", f)
		mon.setState(f, FaultLatched)
		mon.emit(Event{Fault: f, Asserted: true})
		return nil
	}

	mon.msg.Printf("%v cleared, releasing", f)
	mon.setState(f, FaultPendingRelease)
	for _, v := range []uint8{0, rls, 0} {
		err := mon.regs.WriteBits(regs.PROT_RELEASE_CTL, rls, v)
		if err != nil {
			return fmt.Errorf("cs35l35: could not release %v: %w", f, err)
		}
	}
	mon.setState(f, FaultClear)
	mon.emit(Event{Fault: f, Released: true})

	return nil
}

// shutdown powers the amplifier down after a critical fault.
func (mon *Monitor) shutdown(f Fault) error {
	mon.msg.Printf("%v: powering amplifier down", f)
	mon.setState(f, FaultShutDown)

	// both power-down bits are forced even if one write fails.
	err := errors.Join(
		mon.regs.WriteBits(regs.PWRCTL2, regs.PDN_AMP, regs.PDN_AMP),
		mon.regs.WriteBits(regs.PWRCTL1, regs.PDN_ALL_MASK, regs.PDN_ALL),
	)
	mon.emit(Event{Fault: f, Critical: true, Asserted: true})
	if err != nil {
		return fmt.Errorf("cs35l35: could not power down after %v: %w", f, err)
	}
	return nil
}

func (mon *Monitor) advise(f Fault) {
	mon.msg.Printf("%v", f)
	mon.emit(Event{Fault: f, Asserted: true})
}
