// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cs35l35

import (
	"fmt"

	"github.com/go-lpc/amp/cs35l35/internal/regs"
)

// Config holds the board-level configuration of the amplifier.
// Zero values leave the corresponding hardware defaults untouched.
type Config struct {
	BoostPDNFETOn   bool  `json:"boost-pdn-fet-on"`
	BoostVCtl       uint8 `json:"boost-ctl"`
	SPDriveStrength uint8 `json:"sp-drv-strength"`
	AudioChannel    uint8 `json:"audio-channel"`
	AdvisoryChannel uint8 `json:"advisory-channel"`
	Stereo          bool  `json:"stereo-config"`
	SharedBoost     bool  `json:"shared-boost"`
	GainZC          bool  `json:"amp-gain-zc"`

	ClassH  ClassH        `json:"classh-internal-algo"`
	Monitor MonitorConfig `json:"monitor-signal-format"`
}

// ClassH configures the internal class-H (adaptive boost) algorithm.
type ClassH struct {
	Enable        bool  `json:"enable"`
	BoostOverride bool  `json:"classh-bst-override"`
	BoostMaxLimit uint8 `json:"classh-bst-max-limit"`
	MemDepth      uint8 `json:"classh-mem-depth"`
	ReleaseRate   uint8 `json:"classh-release-rate"`
	Headroom      uint8 `json:"classh-headroom"`
	WkFETDisable  uint8 `json:"classh-wk-fet-disable"`
	WkFETDelay    uint8 `json:"classh-wk-fet-delay"`
	WkFETThld     uint8 `json:"classh-wk-fet-thld"`
	VPChAuto      uint8 `json:"classh-vpch-auto"`
	VPChRate      uint8 `json:"classh-vpch-rate"`
	VPChMan       uint8 `json:"classh-vpch-man"`
}

// MonitorConfig configures where the monitor signals are placed in the
// serial-port output frame.
type MonitorConfig struct {
	Present  bool           `json:"present"`
	IMon     *MonitorFormat `json:"imon,omitempty"`
	VMon     *MonitorFormat `json:"vmon,omitempty"`
	VPMon    *MonitorFormat `json:"vpmon,omitempty"`
	VBSTMon  *MonitorFormat `json:"vbstmon,omitempty"`
	VPBRStat *MonitorFormat `json:"vpbrstat,omitempty"`
	ZeroFill *MonitorFormat `json:"zerofill,omitempty"`
}

// MonitorFormat is the depth/location/frame triplet of a monitor signal.
type MonitorFormat struct {
	Depth uint8 `json:"depth"`
	Loc   uint8 `json:"loc"`
	Frame uint8 `json:"frame"`
}

type field struct {
	reg   uint8
	mask  uint8
	shift uint8
	val   uint8
}

// fields returns the register fields to program at attach time.
func (cfg Config) fields() []field {
	var out []field
	add := func(ok bool, reg, mask, shift, val uint8) {
		if !ok {
			return
		}
		out = append(out, field{reg: reg, mask: mask, shift: shift, val: val})
	}

	add(cfg.BoostVCtl != 0, regs.BST_CVTR_V_CTL, regs.BST_CTL_MASK, regs.BST_CTL_SHIFT, cfg.BoostVCtl)
	add(cfg.GainZC, regs.PROTECT_CTL, regs.AMP_GAIN_ZC_MASK, regs.AMP_GAIN_ZC_SHIFT, 1)
	add(cfg.AudioChannel != 0, regs.AUDIN_RXLOC_CTL, regs.AUD_IN_LR_MASK, regs.AUD_IN_LR_SHIFT, cfg.AudioChannel)

	if cfg.Stereo {
		add(true, regs.ADVIN_RXLOC_CTL, regs.ADV_IN_LR_MASK, regs.ADV_IN_LR_SHIFT, cfg.AdvisoryChannel)
		add(cfg.SharedBoost, regs.CLASS_H_CTL, regs.CH_STEREO_MASK, regs.CH_STEREO_SHIFT, 1)
	}

	add(cfg.SPDriveStrength != 0, regs.CLK_CTL1, regs.SP_DRV_MASK, regs.SP_DRV_SHIFT, cfg.SPDriveStrength)

	if ch := cfg.ClassH; ch.Enable {
		add(ch.BoostOverride, regs.CLASS_H_CTL, regs.CH_BST_OVR_MASK, regs.CH_BST_OVR_SHIFT, 1)
		add(ch.BoostMaxLimit != 0, regs.CLASS_H_CTL, regs.CH_BST_LIM_MASK, regs.CH_BST_LIM_SHIFT, ch.BoostMaxLimit)
		add(ch.MemDepth != 0, regs.CLASS_H_CTL, regs.CH_MEM_DEPTH_MASK, regs.CH_MEM_DEPTH_SHIFT, ch.MemDepth)
		add(ch.Headroom != 0, regs.CLASS_H_HEADRM_CTL, regs.CH_HDRM_CTL_MASK, regs.CH_HDRM_CTL_SHIFT, ch.Headroom)
		add(ch.ReleaseRate != 0, regs.CLASS_H_RELEASE_RATE, regs.CH_REL_RATE_MASK, regs.CH_REL_RATE_SHIFT, ch.ReleaseRate)
		add(ch.WkFETDisable != 0, regs.CLASS_H_FET_DRIVE_CTL, regs.CH_WKFET_DIS_MASK, regs.CH_WKFET_DIS_SHIFT, ch.WkFETDisable)
		add(ch.WkFETDelay != 0, regs.CLASS_H_FET_DRIVE_CTL, regs.CH_WKFET_DEL_MASK, regs.CH_WKFET_DEL_SHIFT, ch.WkFETDelay)
		add(ch.WkFETThld != 0, regs.CLASS_H_FET_DRIVE_CTL, regs.CH_WKFET_THLD_MASK, regs.CH_WKFET_THLD_SHIFT, ch.WkFETThld)
		add(ch.VPChAuto != 0, regs.CLASS_H_VP_CTL, regs.CH_VP_AUTO_MASK, regs.CH_VP_AUTO_SHIFT, ch.VPChAuto)
		add(ch.VPChRate != 0, regs.CLASS_H_VP_CTL, regs.CH_VP_RATE_MASK, regs.CH_VP_RATE_SHIFT, ch.VPChRate)
		add(ch.VPChMan != 0, regs.CLASS_H_VP_CTL, regs.CH_VP_MAN_MASK, regs.CH_VP_MAN_SHIFT, ch.VPChMan)
	}

	if mon := cfg.Monitor; mon.Present {
		for _, sig := range []struct {
			f          *MonitorFormat
			depthReg   uint8
			depthMask  uint8
			depthShift uint8
			locReg     uint8
		}{
			{mon.VMon, regs.SPKMON_DEPTH_CTL, regs.VMON_DEPTH_MASK, regs.VMON_DEPTH_SHIFT, regs.VMON_TXLOC_CTL},
			{mon.IMon, regs.SPKMON_DEPTH_CTL, regs.IMON_DEPTH_MASK, regs.IMON_DEPTH_SHIFT, regs.IMON_TXLOC_CTL},
			{mon.VPMon, regs.SUPMON_DEPTH_CTL, regs.VPMON_DEPTH_MASK, regs.VPMON_DEPTH_SHIFT, regs.VPMON_TXLOC_CTL},
			{mon.VBSTMon, regs.SUPMON_DEPTH_CTL, regs.VBSTMON_DEPTH_MASK, regs.VBSTMON_DEPTH_SHIFT, regs.VBSTMON_TXLOC_CTL},
			{mon.VPBRStat, regs.SUPMON_DEPTH_CTL, regs.VPBRSTAT_DEPTH_MASK, regs.VPBRSTAT_DEPTH_SHIFT, regs.VPBR_STATUS_TXLOC_CTL},
			{mon.ZeroFill, regs.ZEROFILL_DEPTH_CTL, regs.ZEROFILL_DEPTH_MASK, regs.ZEROFILL_DEPTH_SHIFT, regs.ZERO_FILL_LOC_CTL},
		} {
			if sig.f == nil {
				continue
			}
			add(true, sig.depthReg, sig.depthMask, sig.depthShift, sig.f.Depth)
			add(true, sig.locReg, regs.MON_TXLOC_MASK, regs.MON_TXLOC_SHIFT, sig.f.Loc)
			add(true, sig.locReg, regs.MON_FRM_MASK, regs.MON_FRM_SHIFT, sig.f.Frame)
		}
	}

	return out
}

func (dev *Device) applyConfig() error {
	for _, f := range dev.cfg.fields() {
		err := dev.regs.UpdateBits(f.reg, f.mask, f.val<<f.shift)
		if err != nil {
			return fmt.Errorf("cs35l35: could not apply configuration to register 0x%02x: %w", f.reg, err)
		}
	}
	return nil
}
