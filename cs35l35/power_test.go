// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cs35l35

import (
	"errors"
	"testing"
	"time"

	"github.com/go-lpc/amp/cs35l35/internal/regs"
)

func countReads(ops []op, reg uint8) int {
	n := 0
	for _, o := range ops {
		if !o.w && o.reg == reg {
			n++
		}
	}
	return n
}

func TestPowerUpDown(t *testing.T) {
	for _, tc := range []struct {
		name string
		pdm  bool
		bst  uint8 // boost control once up
		node Node
	}{
		{"pcm", false, regs.BST_CTL_PRECHARGE, MclkPath},
		{"pdm", true, 0, PdmPath},
	} {
		t.Run(tc.name, func(t *testing.T) {
			chip := newFakeChip()
			dev := newTestDevice(t, chip, WithConfig(Config{BoostVCtl: 0x33}))
			autoPowerDown(t, chip, dev)

			dev.mu.Lock()
			dev.st.pdmMode = tc.pdm
			dev.mu.Unlock()

			mark := chip.mark()
			err := dev.PowerUp(tc.pdm)
			if err != nil {
				t.Fatalf("could not power up: %+v", err)
			}
			ops := chip.since(mark)

			if got, want := writesTo(ops, regs.BST_CVTR_V_CTL)[0], uint8(regs.BST_CTL_PRECHARGE); got != want {
				t.Fatalf("invalid boost pre-charge: got=0x%02x, want=0x%02x", got, want)
			}
			if got := chip.reg(regs.BST_CVTR_V_CTL) & regs.BST_CTL_MASK; got != tc.bst {
				t.Fatalf("invalid boost control: got=0x%02x, want=0x%02x", got, tc.bst)
			}
			for reg := uint8(regs.INT_STATUS_1); reg <= regs.INT_STATUS_4; reg++ {
				if got, want := countReads(ops, reg), 2; got != want {
					t.Fatalf("invalid number of status reads for 0x%02x: got=%d, want=%d", reg, got, want)
				}
			}
			if got := chip.reg(regs.PROTECT_CTL) & regs.AMP_MUTE_MASK; got != 0 {
				t.Fatalf("amplifier still muted")
			}
			if got := chip.reg(regs.PWRCTL1) & regs.PDN_ALL; got != 0 {
				t.Fatalf("device still powered down")
			}
			for _, n := range []Node{tc.node, OutputStage} {
				if got, want := dev.NodeState(n), NodeOn; got != want {
					t.Fatalf("invalid %v state: got=%v, want=%v", n, got, want)
				}
			}

			err = dev.PowerUp(tc.pdm)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrInvalidArgument)
			}

			err = dev.PowerDown()
			if err != nil {
				t.Fatalf("could not power down: %+v", err)
			}
			if got := chip.reg(regs.PROTECT_CTL) & regs.AMP_MUTE_MASK; got == 0 {
				t.Fatalf("amplifier not muted")
			}
			want := uint8(0)
			if tc.pdm {
				want = 0x33
			}
			if got := chip.reg(regs.BST_CVTR_V_CTL) & regs.BST_CTL_MASK; got != want {
				t.Fatalf("invalid boost control: got=0x%02x, want=0x%02x", got, want)
			}
			for _, n := range []Node{tc.node, OutputStage} {
				if got, want := dev.NodeState(n), NodeOff; got != want {
					t.Fatalf("invalid %v state: got=%v, want=%v", n, got, want)
				}
			}

			// powering down twice is a no-op.
			mark = chip.mark()
			err = dev.PowerDown()
			if err != nil {
				t.Fatalf("could not power down: %+v", err)
			}
			if ops := chip.since(mark); len(ops) != 0 {
				t.Fatalf("second power down touched the chip: %v", ops)
			}
		})
	}
}

func TestOutputStageIOError(t *testing.T) {
	chip := newFakeChip()
	dev := newTestDevice(t, chip)

	chip.failWrite[regs.PROTECT_CTL] = true
	err := dev.Event(OutputStage, PostEnable)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrIO)
	}
	if got := dev.NodeState(OutputStage); got != NodeOff {
		t.Fatalf("failed phase changed node state: %v", got)
	}
}

func TestPowerUpFailure(t *testing.T) {
	chip := newFakeChip()
	dev := newTestDevice(t, chip)
	autoPowerDown(t, chip, dev)

	// unmuting fails once the clock path is already live.
	chip.failWrite[regs.PROTECT_CTL] = true
	err := dev.PowerUp(false)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrIO)
	}
	if got, want := dev.NodeState(MclkPath), NodeOn; got != want {
		t.Fatalf("invalid mclk state: got=%v, want=%v", got, want)
	}
	if got := chip.reg(regs.PWRCTL1) & regs.PDN_ALL; got != 0 {
		t.Fatalf("device should be powered after partial power-up")
	}

	err = dev.PowerUp(false)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("partial power-up should block a second power-up: got=%+v", err)
	}

	chip.failWrite[regs.PROTECT_CTL] = false
	mark := chip.mark()
	err = dev.PowerDown()
	if err != nil {
		t.Fatalf("could not power down: %+v", err)
	}
	if len(writesTo(chip.since(mark), regs.PWRCTL1)) == 0 {
		t.Fatalf("power down did not touch PWRCTL1")
	}
	if got := chip.reg(regs.PWRCTL1) & regs.PDN_ALL; got == 0 {
		t.Fatalf("device not powered down")
	}
	for _, n := range []Node{MclkPath, OutputStage} {
		if got, want := dev.NodeState(n), NodeOff; got != want {
			t.Fatalf("invalid %v state: got=%v, want=%v", n, got, want)
		}
	}
}

func TestPowerDownAttemptsEveryPhase(t *testing.T) {
	chip := newFakeChip()
	dev := newTestDevice(t, chip, WithPowerDownTimeout(20*time.Millisecond))

	err := dev.PowerUp(false)
	if err != nil {
		t.Fatalf("could not power up: %+v", err)
	}

	// no completion interrupt: the clock pre-disable times out.
	err = dev.PowerDown()
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrTimedOut)
	}
	if got, want := dev.NodeState(OutputStage), NodeOff; got != want {
		t.Fatalf("output stage not torn down: got=%v, want=%v", got, want)
	}
	if got := chip.reg(regs.PWRCTL1) & regs.PDN_ALL; got == 0 {
		t.Fatalf("device not powered down")
	}
}
