// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cs35l35

import (
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/go-lpc/amp/cs35l35/internal/regs"
)

type op struct {
	w   bool
	reg uint8
	v   uint8
}

func (o op) String() string {
	if o.w {
		return fmt.Sprintf("w(0x%02x, 0x%02x)", o.reg, o.v)
	}
	return fmt.Sprintf("r(0x%02x)", o.reg)
}

// fakeChip emulates the register file of a CS35L35.
// Interrupt status registers are latched: a read returns the sticky bits
// or'ed with the currently asserted conditions, and clears the sticky
// bits.
type fakeChip struct {
	mu      sync.Mutex
	hw      [256]uint8
	sticky  [4]uint8
	current [4]uint8
	ops     []op

	failRead  map[uint8]bool
	failWrite map[uint8]bool

	onWrite func(reg, v uint8)
}

func newFakeChip() *fakeChip {
	chip := &fakeChip{
		failRead:  make(map[uint8]bool),
		failWrite: make(map[uint8]bool),
	}
	for _, d := range regDefaults {
		chip.hw[d.Reg] = d.Val
	}
	chip.hw[regs.DEVID_AB] = 0x35
	chip.hw[regs.DEVID_CD] = 0xa3
	chip.hw[regs.DEVID_E] = 0x50
	chip.hw[regs.REV_ID] = 0xa0
	return chip
}

func (chip *fakeChip) ReadReg(reg uint8) (uint8, error) {
	chip.mu.Lock()
	defer chip.mu.Unlock()

	chip.ops = append(chip.ops, op{reg: reg})
	if chip.failRead[reg] {
		return 0, fmt.Errorf("nack reading 0x%02x", reg)
	}
	if regs.INT_STATUS_1 <= reg && reg <= regs.INT_STATUS_4 {
		i := reg - regs.INT_STATUS_1
		v := chip.sticky[i] | chip.current[i]
		chip.sticky[i] = 0
		return v, nil
	}
	return chip.hw[reg], nil
}

func (chip *fakeChip) WriteReg(reg, v uint8) error {
	chip.mu.Lock()
	chip.ops = append(chip.ops, op{w: true, reg: reg, v: v})
	if chip.failWrite[reg] {
		chip.mu.Unlock()
		return fmt.Errorf("nack writing 0x%02x", reg)
	}
	chip.hw[reg] = v
	hook := chip.onWrite
	chip.mu.Unlock()

	if hook != nil {
		hook(reg, v)
	}
	return nil
}

// raise latches status bits, as the chip does when a condition occurs.
func (chip *fakeChip) raise(i int, bits uint8) {
	chip.mu.Lock()
	defer chip.mu.Unlock()
	chip.sticky[i] |= bits
}

func (chip *fakeChip) reg(reg uint8) uint8 {
	chip.mu.Lock()
	defer chip.mu.Unlock()
	return chip.hw[reg]
}

// mark returns the current position in the transaction log.
func (chip *fakeChip) mark() int {
	chip.mu.Lock()
	defer chip.mu.Unlock()
	return len(chip.ops)
}

// since returns the transactions recorded after mark.
func (chip *fakeChip) since(mark int) []op {
	chip.mu.Lock()
	defer chip.mu.Unlock()
	return append([]op(nil), chip.ops[mark:]...)
}

func writesTo(ops []op, reg uint8) []uint8 {
	var vs []uint8
	for _, o := range ops {
		if o.w && o.reg == reg {
			vs = append(vs, o.v)
		}
	}
	return vs
}

type fakeReset struct {
	chip *fakeChip
	vs   []int
	at   []int // transaction log position at each transition
	err  error
}

func (rst *fakeReset) SetValue(v int) error {
	if rst.err != nil {
		return rst.err
	}
	rst.vs = append(rst.vs, v)
	rst.at = append(rst.at, rst.chip.mark())
	return nil
}

var discard = log.New(io.Discard, "", 0)

func newTestDevice(t *testing.T, chip *fakeChip, opts ...Option) *Device {
	t.Helper()

	opts = append([]Option{WithLogger(discard)}, opts...)
	dev, err := New(chip, opts...)
	if err != nil {
		t.Fatalf("could not attach device: %+v", err)
	}
	dev.sleep = func(time.Duration) {}
	return dev
}
