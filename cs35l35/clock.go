// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cs35l35

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-lpc/amp/cs35l35/internal/regs"
)

const (
	resetAssertDelay  = 2 * time.Millisecond
	resetReleaseDelay = 1 * time.Millisecond
	pdnSettleDelay    = 4 * time.Millisecond
	pwrSettleDelay    = 5 * time.Millisecond
)

func (m ClockMode) state() ClockState {
	if m == ModePDM {
		return ClockPDM
	}
	return ClockMCLK
}

// resetAndSwitch pulses the reset line and reprograms the clock topology
// for mode.
// The register cache is kept authoritative across the reset and replayed
// to the chip afterwards.
// Register update failures do not abort the sequence: they are logged and
// returned together once the cache has been synced.
func (dev *Device) resetAndSwitch(mode ClockMode) error {
	if dev.reset == nil {
		dev.st.clock = mode.state()
		return nil
	}

	prev := dev.st.clock
	dev.st.clock = ClockResetting

	err := dev.reset.SetValue(0)
	if err != nil {
		dev.st.clock = prev
		return fmt.Errorf("cs35l35: could not assert reset line: %w", err)
	}
	dev.sleep(resetAssertDelay)
	dev.regs.SetCacheOnly(true)

	err = dev.reset.SetValue(1)
	if err != nil {
		dev.regs.SetCacheOnly(false)
		dev.st.clock = prev
		return fmt.Errorf("cs35l35: could not release reset line: %w", err)
	}
	dev.sleep(resetReleaseDelay)
	dev.regs.SetCacheOnly(true)
	dev.regs.MarkDirty()

	var errs []error
	update := func(reg, mask, v uint8) {
		err := dev.regs.UpdateBits(reg, mask, v)
		if err != nil {
			dev.msg.Printf("could not update register 0x%02x during %v switch: %+v", reg, mode, err)
			errs = append(errs, err)
		}
	}

	switch mode {
	case ModePDM:
		update(regs.AMP_INP_DRV_CTL, regs.PDM_MODE_MASK, regs.PDM_MODE_MASK)
		update(regs.CLK_CTL1, regs.CLK_SOURCE_MASK, regs.CLK_SOURCE_PDM<<regs.CLK_SOURCE_SHIFT)
		update(regs.CLK_CTL2, regs.CLK_DIV_MASK, 0)
	default:
		update(regs.AMP_INP_DRV_CTL, regs.PDM_MODE_MASK, 0)
		update(regs.CLK_CTL1, regs.CLK_SOURCE_MASK, regs.CLK_SOURCE_MCLK<<regs.CLK_SOURCE_SHIFT)
		update(regs.CLK_CTL2, regs.CLK_DIV_MASK, 1)
	}

	dev.regs.SetCacheOnly(false)
	err = dev.regs.Sync()
	if err != nil {
		dev.msg.Printf("could not sync registers after %v switch: %+v", mode, err)
		errs = append(errs, err)
	}
	dev.st.clock = mode.state()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("cs35l35: reset and switch to %v: %w", mode, err)
	}
	return nil
}

// powerDown asserts the global power-down and waits for the chip to
// report completion.
func (dev *Device) powerDown() error {
	// drop any completion left over from a previous cycle.
	dev.pdnDone.reset()

	rw := rwer{m: dev.regs}
	rw.update(regs.AMP_DIG_VOL_CTL, regs.DIG_SOFT_RAMP, 0)
	rw.update(regs.PWRCTL1, regs.PDN_ALL_MASK, regs.PDN_ALL)
	rw.update(regs.PWRCTL1, regs.DISCHG_FILT_MASK, regs.DISCHG_FILT)
	if rw.err != nil {
		return fmt.Errorf("cs35l35: could not assert power-down: %w", rw.err)
	}

	dev.sleep(pdnSettleDelay)
	if !dev.pdnDone.wait(dev.pdnTimeout) {
		dev.msg.Printf("power-down did not complete within %v", dev.pdnTimeout)
		return fmt.Errorf("%w: power-down did not complete within %v", ErrTimedOut, dev.pdnTimeout)
	}
	dev.st.clock = ClockIdle

	return nil
}

// powerUp releases the discharge filter and the global power-down.
func (dev *Device) powerUp() error {
	dev.sleep(pwrSettleDelay)

	rw := rwer{m: dev.regs}
	rw.update(regs.PWRCTL1, regs.DISCHG_FILT_MASK, 0)
	rw.update(regs.PWRCTL1, regs.PDN_ALL_MASK, 0)
	if rw.err != nil {
		return fmt.Errorf("cs35l35: could not release power-down: %w", rw.err)
	}
	return nil
}

// mclkPath is the MCLK (I2S/TDM) clock supply.
type mclkPath struct {
	dev *Device
}

func (p *mclkPath) event(phase Phase) error {
	dev := p.dev
	switch phase {
	case PreEnable:
		dev.st.i2sEnabled = true
		err := dev.regs.UpdateBits(regs.AMP_DIG_VOL_CTL, regs.DIG_SOFT_RAMP, regs.DIG_SOFT_RAMP)
		if err != nil {
			return fmt.Errorf("cs35l35: could not enable soft ramp: %w", err)
		}
		if dev.st.pdmSwitch {
			dev.st.pdmSwitch = false
			return dev.resetAndSwitch(ModeMCLK)
		}
		dev.st.clock = ClockMCLK
		return nil

	case PostEnable:
		return dev.powerUp()

	case PreDisable:
		dev.st.i2sEnabled = false
		if dev.st.pdmMode {
			dev.st.pdmSwitch = true
			return dev.resetAndSwitch(ModePDM)
		}
		return dev.powerDown()

	case PostDisable:
		return nil
	}

	return fmt.Errorf("%w: invalid phase %v", ErrInvalidArgument, phase)
}

// pdmPath is the PDM clock supply.
// MCLK always takes precedence: pdmPath is inert while the MCLK path is
// enabled.
type pdmPath struct {
	dev *Device
}

func (p *pdmPath) event(phase Phase) error {
	dev := p.dev
	if !phase.valid() {
		return fmt.Errorf("%w: invalid phase %v", ErrInvalidArgument, phase)
	}
	if dev.st.i2sEnabled {
		return nil
	}

	switch phase {
	case PreEnable:
		err := dev.regs.UpdateBits(regs.AMP_DIG_VOL_CTL, regs.DIG_SOFT_RAMP, regs.DIG_SOFT_RAMP)
		if err != nil {
			return fmt.Errorf("cs35l35: could not enable soft ramp: %w", err)
		}
		if !dev.st.pdmSwitch {
			dev.st.pdmSwitch = true
			return dev.resetAndSwitch(ModePDM)
		}
		err = dev.regs.UpdateBits(regs.CLK_CTL2, regs.CLK_DIV_MASK, 0)
		if err != nil {
			return fmt.Errorf("cs35l35: could not set PDM clock divider: %w", err)
		}
		dev.st.clock = ClockPDM
		return nil

	case PostEnable:
		return dev.powerUp()

	case PreDisable:
		return dev.powerDown()
	}

	return nil
}
