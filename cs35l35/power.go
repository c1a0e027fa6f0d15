// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cs35l35

import (
	"fmt"

	"github.com/go-lpc/amp/cs35l35/internal/regs"
)

// outputStage is the main amplifier output stage.
type outputStage struct {
	dev *Device
}

func (amp *outputStage) event(phase Phase) error {
	var (
		dev = amp.dev
		rw  = rwer{m: dev.regs}
	)

	switch phase {
	case PreEnable:
		rw.update(regs.BST_CVTR_V_CTL, regs.BST_CTL_MASK, regs.BST_CTL_PRECHARGE)

	case PostEnable:
		dev.sleep(pwrSettleDelay)
		// in PDM mode, the boost voltage tracks VP.
		if dev.st.pdmMode {
			rw.update(regs.BST_CVTR_V_CTL, regs.BST_CTL_MASK, 0)
		}
		if rw.err == nil {
			rw.err = amp.discardStatus()
		}
		rw.update(regs.PROTECT_CTL, regs.AMP_MUTE_MASK, 0)

	case PreDisable:
		rw.update(regs.PROTECT_CTL, regs.AMP_MUTE_MASK, 1<<regs.AMP_MUTE_SHIFT)
		rw.update(regs.BST_CVTR_V_CTL, regs.BST_CTL_MASK, 0)

	case PostDisable:
		dev.sleep(pwrSettleDelay)
		if dev.st.pdmMode {
			rw.update(regs.BST_CVTR_V_CTL, regs.BST_CTL_MASK, dev.cfg.BoostVCtl<<regs.BST_CTL_SHIFT)
		}

	default:
		return fmt.Errorf("%w: invalid phase %v", ErrInvalidArgument, phase)
	}

	if rw.err != nil {
		return fmt.Errorf("cs35l35: could not sequence output stage: %w", rw.err)
	}
	return nil
}

// discardStatus reads the sticky status block twice, clearing the latches
// raised while the output stage was coming up.
func (amp *outputStage) discardStatus() error {
	for i := 0; i < 2; i++ {
		_, err := amp.dev.regs.BulkRead(regs.INT_STATUS_1, 4)
		if err != nil {
			return fmt.Errorf("cs35l35: could not read status block: %w", err)
		}
	}
	return nil
}
