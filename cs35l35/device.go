// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cs35l35 controls a CS35L35 boosted class-D audio amplifier
// sitting on an I2C bus.
//
// The package sequences power-up and power-down of the clock supplies and
// of the output stage, switches between the MCLK (I2S/TDM) and PDM clock
// sources (which requires a hardware reset of the chip), and monitors the
// interrupt line for protection faults.
package cs35l35 // import "github.com/go-lpc/amp/cs35l35"

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-lpc/amp/cs35l35/internal/regs"
	"github.com/go-lpc/amp/regmap"
)

// ResetLine is the GPIO line driving the (active-low) reset pin.
type ResetLine interface {
	SetValue(v int) error
}

type config struct {
	msg     *log.Logger
	reset   ResetLine
	timeout time.Duration
	handler func(Event)
	board   Config
}

func newConfig() config {
	return config{
		msg:     log.New(os.Stdout, "cs35l35: ", 0),
		timeout: 100 * time.Millisecond,
	}
}

// Option configures a Device.
type Option func(*config)

// WithLogger sets the logger used by the device and its fault monitor.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithResetLine sets the GPIO line driving the reset pin.
// Without a reset line, clock-source switches do not reset the chip.
func WithResetLine(line ResetLine) Option {
	return func(cfg *config) {
		cfg.reset = line
	}
}

// WithPowerDownTimeout sets how long a clock-path disable waits for the
// power-down-done interrupt.
func WithPowerDownTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = timeout
	}
}

// WithFaultHandler registers a callback invoked by the fault monitor for
// each fault condition it observes.
func WithFaultHandler(f func(Event)) Option {
	return func(cfg *config) {
		cfg.handler = f
	}
}

// WithConfig sets the board configuration applied at attach time.
func WithConfig(board Config) Option {
	return func(cfg *config) {
		cfg.board = board
	}
}

// ClockMode is a clock-source topology.
type ClockMode int

const (
	ModeMCLK ClockMode = iota
	ModePDM
)

func (m ClockMode) String() string {
	switch m {
	case ModeMCLK:
		return "mclk"
	case ModePDM:
		return "pdm"
	}
	return fmt.Sprintf("ClockMode(%d)", int(m))
}

// ClockState is the state of the clock/reset sequencer.
type ClockState int

const (
	ClockIdle ClockState = iota
	ClockResetting
	ClockMCLK
	ClockPDM
)

func (s ClockState) String() string {
	switch s {
	case ClockIdle:
		return "idle"
	case ClockResetting:
		return "resetting"
	case ClockMCLK:
		return "active(mclk)"
	case ClockPDM:
		return "active(pdm)"
	}
	return fmt.Sprintf("ClockState(%d)", int(s))
}

// state is the control-path state of the device.
// It is only accessed with Device.mu held.
type state struct {
	pdmMode    bool
	i2sEnabled bool
	slaveMode  bool
	tdmMode    bool
	pdmSwitch  bool // hardware clocked for PDM, MCLK enable must reset

	sysclk uint32
	sclk   uint32

	clock ClockState
	nodes [nNodes]NodeState
	up    Node // clock path brought up by PowerUp, or -1
}

// Device is an attached CS35L35 amplifier.
type Device struct {
	msg   *log.Logger
	regs  *regmap.Map
	reset ResetLine
	cfg   Config

	pdnTimeout time.Duration
	pdnDone    *completion
	mon        *Monitor

	id  uint32
	rev uint8

	mu    sync.Mutex
	st    state
	mclk  mclkPath
	pdm   pdmPath
	amp   outputStage
	sleep func(time.Duration)
}

// New attaches the amplifier reachable through bus.
func New(bus regmap.Bus, opts ...Option) (*Device, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	dev := &Device{
		msg:        cfg.msg,
		regs:       newRegmap(bus),
		reset:      cfg.reset,
		cfg:        cfg.board,
		pdnTimeout: cfg.timeout,
		pdnDone:    newCompletion(),
		sleep:      time.Sleep,
	}
	dev.st.up = -1
	dev.mclk.dev = dev
	dev.pdm.dev = dev
	dev.amp.dev = dev
	dev.mon = newMonitor(dev.msg, dev.regs, dev.pdnDone, cfg.handler)

	err := dev.attach()
	if err != nil {
		return nil, fmt.Errorf("cs35l35: could not attach device: %w", err)
	}

	return dev, nil
}

func (dev *Device) attach() error {
	if dev.reset != nil {
		err := dev.reset.SetValue(1)
		if err != nil {
			return fmt.Errorf("cs35l35: could not release reset line: %w", err)
		}
	}

	err := dev.regs.Patch(errataPatch)
	if err != nil {
		return fmt.Errorf("cs35l35: could not apply errata patch: %w", err)
	}

	rw := rwer{m: dev.regs}
	var (
		ab = rw.read(regs.DEVID_AB)
		cd = rw.read(regs.DEVID_CD)
		e  = rw.read(regs.DEVID_E)
	)
	if rw.err != nil {
		return fmt.Errorf("cs35l35: could not read device id: %w", rw.err)
	}
	dev.id = uint32(ab)<<12 | uint32(cd)<<4 | uint32(e&0xf0)>>4
	if dev.id != regs.ChipID {
		return fmt.Errorf("%w: device id 0x%x, expected 0x%x", ErrDeviceNotFound, dev.id, regs.ChipID)
	}

	dev.rev = rw.read(regs.REV_ID)
	if rw.err != nil {
		return fmt.Errorf("cs35l35: could not read revision id: %w", rw.err)
	}
	dev.msg.Printf("CS35L35 (%x), revision: %02X", dev.id, dev.rev)

	rw.write(regs.INT_MASK_1, regs.INT1_CRIT_MASK)
	rw.write(regs.INT_MASK_2, regs.INT2_CRIT_MASK)
	rw.write(regs.INT_MASK_3, regs.INT3_CRIT_MASK)
	rw.write(regs.INT_MASK_4, regs.INT4_CRIT_MASK)

	rw.update(regs.PWRCTL2, regs.PWR2_PDN_MASK, regs.PWR2_PDN_MASK)
	if dev.cfg.BoostPDNFETOn {
		rw.update(regs.PWRCTL2, regs.PDN_BST_MASK, 1<<regs.PDN_BST_FETON_SHIFT)
	} else {
		rw.update(regs.PWRCTL2, regs.PDN_BST_MASK, 1<<regs.PDN_BST_FETOFF_SHIFT)
	}
	rw.update(regs.PWRCTL3, regs.PWR3_PDN_MASK, regs.PWR3_PDN_MASK)
	rw.update(regs.PROTECT_CTL, regs.AMP_MUTE_MASK, 1<<regs.AMP_MUTE_SHIFT)
	if rw.err != nil {
		return fmt.Errorf("cs35l35: could not initialize device: %w", rw.err)
	}

	return dev.applyConfig()
}

// ID returns the device identifier read at attach time.
func (dev *Device) ID() uint32 { return dev.id }

// Revision returns the silicon revision read at attach time.
func (dev *Device) Revision() uint8 { return dev.rev }

// Registers returns the register map of the device.
func (dev *Device) Registers() *regmap.Map { return dev.regs }

// Monitor returns the fault monitor of the device.
func (dev *Device) Monitor() *Monitor { return dev.mon }

// ClockState returns the current state of the clock sequencer.
func (dev *Device) ClockState() ClockState {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.st.clock
}

// Mode reports whether the negotiated audio path is PDM.
func (dev *Device) Mode() (pdm bool) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.st.pdmMode
}

// NodeState returns the lifecycle state of a node.
func (dev *Device) NodeState(n Node) NodeState {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if !n.valid() {
		return NodeOff
	}
	return dev.st.nodes[n]
}

// rwer wraps a register map and keeps the first error encountered:
// once an access failed, subsequent accesses are no-ops.
type rwer struct {
	m   *regmap.Map
	err error
}

func (rw *rwer) read(reg uint8) uint8 {
	if rw.err != nil {
		return 0
	}
	var v uint8
	v, rw.err = rw.m.Read(reg)
	return v
}

func (rw *rwer) write(reg, v uint8) {
	if rw.err != nil {
		return
	}
	rw.err = rw.m.Write(reg, v)
}

func (rw *rwer) update(reg, mask, v uint8) {
	if rw.err != nil {
		return
	}
	rw.err = rw.m.UpdateBits(reg, mask, v)
}
