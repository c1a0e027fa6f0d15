// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cs35l35

import (
	"github.com/go-lpc/amp/cs35l35/internal/regs"
	"github.com/go-lpc/amp/regmap"
)

var regDefaults = []regmap.Default{
	{Reg: regs.PWRCTL1, Val: 0x01},
	{Reg: regs.PWRCTL2, Val: 0x11},
	{Reg: regs.PWRCTL3, Val: 0x00},
	{Reg: regs.CLK_CTL1, Val: 0x04},
	{Reg: regs.CLK_CTL2, Val: 0x10},
	{Reg: regs.CLK_CTL3, Val: 0xcf},
	{Reg: regs.SP_FMT_CTL1, Val: 0x20},
	{Reg: regs.SP_FMT_CTL2, Val: 0x00},
	{Reg: regs.SP_FMT_CTL3, Val: 0x02},
	{Reg: regs.MAG_COMP_CTL, Val: 0x00},
	{Reg: regs.AMP_INP_DRV_CTL, Val: 0x01},
	{Reg: regs.AMP_DIG_VOL_CTL, Val: 0x12},
	{Reg: regs.AMP_DIG_VOL, Val: 0x00},
	{Reg: regs.ADV_DIG_VOL, Val: 0x00},
	{Reg: regs.PROTECT_CTL, Val: 0x06},
	{Reg: regs.AMP_GAIN_AUD_CTL, Val: 0x13},
	{Reg: regs.AMP_GAIN_PDM_CTL, Val: 0x00},
	{Reg: regs.AMP_GAIN_ADV_CTL, Val: 0x00},
	{Reg: regs.GPI_CTL, Val: 0x00},
	{Reg: regs.BST_CVTR_V_CTL, Val: 0x00},
	{Reg: regs.BST_PEAK_I, Val: 0x07},
	{Reg: regs.BST_RAMP_CTL, Val: 0x85},
	{Reg: regs.BST_CONV_COEF_1, Val: 0x20},
	{Reg: regs.BST_CONV_COEF_2, Val: 0x20},
	{Reg: regs.BST_CONV_SLOPE_COMP, Val: 0x47},
	{Reg: regs.BST_CONV_SW_FREQ, Val: 0x04},
	{Reg: regs.CLASS_H_CTL, Val: 0x0b},
	{Reg: regs.CLASS_H_HEADRM_CTL, Val: 0x0b},
	{Reg: regs.CLASS_H_RELEASE_RATE, Val: 0x08},
	{Reg: regs.CLASS_H_FET_DRIVE_CTL, Val: 0x41},
	{Reg: regs.CLASS_H_VP_CTL, Val: 0xc5},
	{Reg: regs.VPBR_CTL, Val: 0x0a},
	{Reg: regs.VPBR_VOL_CTL, Val: 0x09},
	{Reg: regs.VPBR_TIMING_CTL, Val: 0x6a},
	{Reg: regs.VPBR_MODE_VOL_CTL, Val: 0x00},
	{Reg: regs.SPKR_MON_CTL, Val: 0xc0},
	{Reg: regs.IMON_SCALE_CTL, Val: 0x30},
	{Reg: regs.AUDIN_RXLOC_CTL, Val: 0x00},
	{Reg: regs.ADVIN_RXLOC_CTL, Val: 0x80},
	{Reg: regs.VMON_TXLOC_CTL, Val: 0x00},
	{Reg: regs.IMON_TXLOC_CTL, Val: 0x80},
	{Reg: regs.VPMON_TXLOC_CTL, Val: 0x04},
	{Reg: regs.VBSTMON_TXLOC_CTL, Val: 0x84},
	{Reg: regs.VPBR_STATUS_TXLOC_CTL, Val: 0x04},
	{Reg: regs.ZERO_FILL_LOC_CTL, Val: 0x00},
	{Reg: regs.AUDIN_DEPTH_CTL, Val: 0x0f},
	{Reg: regs.SPKMON_DEPTH_CTL, Val: 0x0f},
	{Reg: regs.SUPMON_DEPTH_CTL, Val: 0x0f},
	{Reg: regs.ZEROFILL_DEPTH_CTL, Val: 0x00},
	{Reg: regs.MULT_DEV_SYNCH1, Val: 0x02},
	{Reg: regs.MULT_DEV_SYNCH2, Val: 0x80},
	{Reg: regs.PROT_RELEASE_CTL, Val: 0x00},
	{Reg: regs.DIAG_MODE_REG_LOCK, Val: 0x00},
	{Reg: regs.DIAG_MODE_CTL_1, Val: 0x40},
	{Reg: regs.DIAG_MODE_CTL_2, Val: 0x00},
	{Reg: regs.INT_MASK_1, Val: 0xff},
	{Reg: regs.INT_MASK_2, Val: 0xff},
	{Reg: regs.INT_MASK_3, Val: 0xff},
	{Reg: regs.INT_MASK_4, Val: 0xff},
}

// errataPatch is the Rev A0 errata sequence.
var errataPatch = []regmap.Default{
	{Reg: regs.ERRATA_PAGE_SELECT, Val: regs.ERRATA_PAGE_UNLOCK_CODE},
	{Reg: 0x00, Val: 0x99},
	{Reg: 0x52, Val: 0x22},
	{Reg: 0x04, Val: 0x14},
	{Reg: 0x6d, Val: 0x44},
	{Reg: 0x24, Val: 0x10},
	{Reg: 0x58, Val: 0xc4},
	{Reg: 0x00, Val: 0x98},
	{Reg: 0x18, Val: 0x08},
	{Reg: 0x00, Val: 0x00},
	{Reg: regs.ERRATA_PAGE_SELECT, Val: 0x00},
}

func volatileReg(reg uint8) bool {
	switch {
	case reg >= regs.DEVID_AB && reg <= regs.REV_ID:
		return true
	}
	switch reg {
	case regs.INT_STATUS_1, regs.INT_STATUS_2, regs.INT_STATUS_3, regs.INT_STATUS_4,
		regs.PLL_STATUS, regs.OTP_TRIM_STATUS:
		return true
	}
	return false
}

func preciousReg(reg uint8) bool {
	switch reg {
	case regs.INT_STATUS_1, regs.INT_STATUS_2, regs.INT_STATUS_3, regs.INT_STATUS_4,
		regs.PLL_STATUS, regs.OTP_TRIM_STATUS:
		return true
	}
	return false
}

func readableReg(reg uint8) bool {
	in := func(lo, hi uint8) bool { return lo <= reg && reg <= hi }
	switch {
	case in(regs.DEVID_AB, regs.PWRCTL3),
		in(regs.CLK_CTL1, regs.SP_FMT_CTL3),
		in(regs.MAG_COMP_CTL, regs.AMP_GAIN_AUD_CTL),
		in(regs.AMP_GAIN_PDM_CTL, regs.BST_PEAK_I),
		in(regs.BST_RAMP_CTL, regs.BST_CONV_SW_FREQ),
		in(regs.CLASS_H_CTL, regs.CLASS_H_VP_CTL),
		reg == regs.CLASS_H_STATUS,
		in(regs.VPBR_CTL, regs.VPBR_MODE_VOL_CTL),
		reg == regs.VPBR_ATTEN_STATUS,
		reg == regs.SPKR_MON_CTL,
		in(regs.IMON_SCALE_CTL, regs.ZEROFILL_DEPTH_CTL),
		in(regs.MULT_DEV_SYNCH1, regs.PROT_RELEASE_CTL),
		in(regs.DIAG_MODE_REG_LOCK, regs.DIAG_MODE_CTL_2),
		in(regs.INT_MASK_1, regs.PLL_STATUS),
		reg == regs.OTP_TRIM_STATUS:
		return true
	}
	return false
}

// writeableReg excludes the identification and status registers.
func writeableReg(reg uint8) bool {
	if !readableReg(reg) {
		return false
	}
	switch {
	case reg >= regs.DEVID_AB && reg <= regs.REV_ID:
		return false
	case reg == regs.CLASS_H_STATUS, reg == regs.VPBR_ATTEN_STATUS:
		return false
	case reg >= regs.INT_STATUS_1 && reg <= regs.PLL_STATUS:
		return false
	case reg == regs.OTP_TRIM_STATUS:
		return false
	}
	return true
}

func newRegmap(bus regmap.Bus) *regmap.Map {
	return regmap.New(bus, regmap.Config{
		MaxRegister: regs.MAX_REGISTER,
		Defaults:    regDefaults,
		Readable:    readableReg,
		Writeable:   writeableReg,
		Volatile:    volatileReg,
		Precious:    preciousReg,
	})
}
