// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the register map of the CS35L35 amplifier.
package regs // import "github.com/go-lpc/amp/cs35l35/internal/regs"

const (
	ChipID = 0x35a35

	DEVID_AB                = 0x01
	DEVID_CD                = 0x02
	DEVID_E                 = 0x03
	FAB_ID                  = 0x04
	REV_ID                  = 0x05
	PWRCTL1                 = 0x06
	PWRCTL2                 = 0x07
	PWRCTL3                 = 0x08
	CLK_CTL1                = 0x0a
	CLK_CTL2                = 0x0b
	CLK_CTL3                = 0x0c
	SP_FMT_CTL1             = 0x0d
	SP_FMT_CTL2             = 0x0e
	SP_FMT_CTL3             = 0x0f
	MAG_COMP_CTL            = 0x13
	AMP_INP_DRV_CTL         = 0x14
	AMP_DIG_VOL_CTL         = 0x15
	AMP_DIG_VOL             = 0x16
	ADV_DIG_VOL             = 0x17
	PROTECT_CTL             = 0x18
	AMP_GAIN_AUD_CTL        = 0x19
	AMP_GAIN_PDM_CTL        = 0x1a
	AMP_GAIN_ADV_CTL        = 0x1b
	GPI_CTL                 = 0x1c
	BST_CVTR_V_CTL          = 0x1d
	BST_PEAK_I              = 0x1e
	BST_RAMP_CTL            = 0x20
	BST_CONV_COEF_1         = 0x21
	BST_CONV_COEF_2         = 0x22
	BST_CONV_SLOPE_COMP     = 0x23
	BST_CONV_SW_FREQ        = 0x24
	CLASS_H_CTL             = 0x30
	CLASS_H_HEADRM_CTL      = 0x31
	CLASS_H_RELEASE_RATE    = 0x32
	CLASS_H_FET_DRIVE_CTL   = 0x33
	CLASS_H_VP_CTL          = 0x34
	CLASS_H_STATUS          = 0x38
	VPBR_CTL                = 0x3a
	VPBR_VOL_CTL            = 0x3b
	VPBR_TIMING_CTL         = 0x3c
	VPBR_MODE_VOL_CTL       = 0x3d
	VPBR_ATTEN_STATUS       = 0x4b
	SPKR_MON_CTL            = 0x4e
	IMON_SCALE_CTL          = 0x51
	AUDIN_RXLOC_CTL         = 0x52
	ADVIN_RXLOC_CTL         = 0x53
	VMON_TXLOC_CTL          = 0x54
	IMON_TXLOC_CTL          = 0x55
	VPMON_TXLOC_CTL         = 0x56
	VBSTMON_TXLOC_CTL       = 0x57
	VPBR_STATUS_TXLOC_CTL   = 0x58
	ZERO_FILL_LOC_CTL       = 0x59
	AUDIN_DEPTH_CTL         = 0x5a
	SPKMON_DEPTH_CTL        = 0x5b
	SUPMON_DEPTH_CTL        = 0x5c
	ZEROFILL_DEPTH_CTL      = 0x5d
	MULT_DEV_SYNCH1         = 0x62
	MULT_DEV_SYNCH2         = 0x63
	PROT_RELEASE_CTL        = 0x64
	DIAG_MODE_REG_LOCK      = 0x68
	DIAG_MODE_CTL_1         = 0x69
	DIAG_MODE_CTL_2         = 0x6a
	INT_MASK_1              = 0x70
	INT_MASK_2              = 0x71
	INT_MASK_3              = 0x72
	INT_MASK_4              = 0x73
	INT_STATUS_1            = 0x74
	INT_STATUS_2            = 0x75
	INT_STATUS_3            = 0x76
	INT_STATUS_4            = 0x77
	PLL_STATUS              = 0x78
	OTP_TRIM_STATUS         = 0x7e
	MAX_REGISTER            = 0x7f
	ERRATA_PAGE_SELECT      = 0x7f
	ERRATA_PAGE_UNLOCK_CODE = 0x99
)

// PWRCTL1
const (
	SFT_RST          = 0x80
	DISCHG_FILT_MASK = 0x02
	DISCHG_FILT      = 0x02
	PDN_ALL_MASK     = 0x01
	PDN_ALL          = 0x01
)

// PWRCTL2
const (
	PDN_VMON             = 0x80
	PDN_IMON             = 0x40
	PDN_CLASSH           = 0x20
	PDN_VPBR             = 0x10
	PDN_BST_MASK         = 0x0c
	PDN_BST_FETON_SHIFT  = 3
	PDN_BST_FETOFF_SHIFT = 2
	PDN_AMP              = 0x01
	PWR2_PDN_MASK        = 0xe3
)

// PWRCTL3
const (
	PWR3_PDN_MASK = 0x1e
)

// CLK_CTL1
const (
	MS_MASK          = 0x80
	MS_SHIFT         = 7
	SP_DRV_MASK      = 0x10
	SP_DRV_SHIFT     = 4
	MCLK_DIS         = 0x04
	CLK_SOURCE_MASK  = 0x03
	CLK_SOURCE_SHIFT = 0

	CLK_SOURCE_MCLK = 0
	CLK_SOURCE_SCLK = 1
	CLK_SOURCE_PDM  = 2
)

// CLK_CTL2
const (
	CLK_CTL2_MASK = 0xff
	SP_RATE_MASK  = 0x03
	CLK_DIV_MASK  = 0x03
)

// CLK_CTL3
const (
	SP_SCLKS_MASK  = 0x0f
	SP_SCLKS_SHIFT = 0

	SP_SCLKS_32FS = 0x07
	SP_SCLKS_48FS = 0x0b
	SP_SCLKS_64FS = 0x0f
)

// AMP_INP_DRV_CTL
const (
	PDM_MODE_MASK = 0x40
)

// AMP_DIG_VOL_CTL
const (
	DIG_SOFT_RAMP = 0x02
)

// PROTECT_CTL
const (
	AMP_MUTE_MASK     = 0x20
	AMP_MUTE_SHIFT    = 5
	AMP_GAIN_ZC_MASK  = 0x40
	AMP_GAIN_ZC_SHIFT = 6
)

// BST_CVTR_V_CTL
const (
	BST_CTL_MASK      = 0x7f
	BST_CTL_SHIFT     = 0
	BST_CTL_PRECHARGE = 0x41
)

// CLASS_H_*
const (
	CH_STEREO_MASK      = 0x40
	CH_STEREO_SHIFT     = 6
	CH_BST_OVR_MASK     = 0x04
	CH_BST_OVR_SHIFT    = 2
	CH_BST_LIM_MASK     = 0x08
	CH_BST_LIM_SHIFT    = 3
	CH_MEM_DEPTH_MASK   = 0x01
	CH_MEM_DEPTH_SHIFT  = 0
	CH_HDRM_CTL_MASK    = 0x3f
	CH_HDRM_CTL_SHIFT   = 0
	CH_REL_RATE_MASK    = 0xff
	CH_REL_RATE_SHIFT   = 0
	CH_WKFET_DIS_MASK   = 0x80
	CH_WKFET_DIS_SHIFT  = 7
	CH_WKFET_DEL_MASK   = 0x70
	CH_WKFET_DEL_SHIFT  = 4
	CH_WKFET_THLD_MASK  = 0x0f
	CH_WKFET_THLD_SHIFT = 0
	CH_VP_AUTO_MASK     = 0x80
	CH_VP_AUTO_SHIFT    = 7
	CH_VP_RATE_MASK     = 0x60
	CH_VP_RATE_SHIFT    = 5
	CH_VP_MAN_MASK      = 0x1f
	CH_VP_MAN_SHIFT     = 0
)

// Routing and monitor formats.
const (
	AUD_IN_LR_MASK  = 0x80
	AUD_IN_LR_SHIFT = 7
	ADV_IN_LR_MASK  = 0x80
	ADV_IN_LR_SHIFT = 7

	AUDIN_DEPTH_MASK  = 0x03
	AUDIN_DEPTH_SHIFT = 0
	ADVIN_DEPTH_MASK  = 0x0c
	ADVIN_DEPTH_SHIFT = 2
	SDIN_DEPTH_8      = 0x01
	SDIN_DEPTH_16     = 0x02
	SDIN_DEPTH_24     = 0x03

	MON_TXLOC_MASK  = 0x3f
	MON_TXLOC_SHIFT = 0
	MON_FRM_MASK    = 0x80
	MON_FRM_SHIFT   = 7

	IMON_DEPTH_MASK      = 0x03
	IMON_DEPTH_SHIFT     = 0
	VMON_DEPTH_MASK      = 0x0c
	VMON_DEPTH_SHIFT     = 2
	VBSTMON_DEPTH_MASK   = 0x03
	VBSTMON_DEPTH_SHIFT  = 0
	VPMON_DEPTH_MASK     = 0x0c
	VPMON_DEPTH_SHIFT    = 2
	VPBRSTAT_DEPTH_MASK  = 0x30
	VPBRSTAT_DEPTH_SHIFT = 4
	ZEROFILL_DEPTH_MASK  = 0x03
	ZEROFILL_DEPTH_SHIFT = 0
)

// PROT_RELEASE_CTL
const (
	CAL_ERR_RLS = 0x80
	SHORT_RLS   = 0x04
	OTW_RLS     = 0x02
	OTE_RLS     = 0x01
)

// INT_STATUS_1
const (
	CAL_ERR   = 0x80
	OTP_ERR   = 0x40
	LRCLK_ERR = 0x20
	SCLK_ERR  = 0x10
	MCLK_ERR  = 0x08
	OTE       = 0x04
	OTW       = 0x02
	AMP_SHORT = 0x01
)

// INT_STATUS_2
const (
	PDN_DONE = 0x10
	VPBR_CLR = 0x04
	VPBR_ERR = 0x02
)

// INT_STATUS_3
const (
	BST_HIGH      = 0x10
	BST_HIGH_FLAG = 0x08
	BST_IPK_FLAG  = 0x04
	LBST_SHORT    = 0x01
)

// INT_STATUS_4
const (
	VMON_OVFL = 0x08
	IMON_OVFL = 0x04
)

// Interrupt masks leaving only the critical conditions unmasked.
const (
	INT1_CRIT_MASK = 0x38
	INT2_CRIT_MASK = 0xef
	INT3_CRIT_MASK = 0xee
	INT4_CRIT_MASK = 0xff
)
