// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cs35l35

import (
	"fmt"

	"github.com/go-lpc/amp/cs35l35/internal/regs"
)

// ClockSource selects the clock feeding the internal PLL.
type ClockSource int

const (
	SourceMCLK ClockSource = iota
	SourceSCLK
	SourcePDM
)

func (src ClockSource) String() string {
	switch src {
	case SourceMCLK:
		return "mclk"
	case SourceSCLK:
		return "sclk"
	case SourcePDM:
		return "pdm"
	}
	return fmt.Sprintf("ClockSource(%d)", int(src))
}

// Protocol is a serial-port framing protocol.
type Protocol int

const (
	ProtoI2S Protocol = iota
	// ProtoDSPA is the TDM framing.
	ProtoDSPA
	ProtoPDM
)

func (p Protocol) String() string {
	switch p {
	case ProtoI2S:
		return "i2s"
	case ProtoDSPA:
		return "dsp-a"
	case ProtoPDM:
		return "pdm"
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}

// Format is a serial-port format.
type Format struct {
	Master   bool // the amplifier drives the bit and frame clocks
	Protocol Protocol
}

// Params are the stream parameters negotiated with the host.
type Params struct {
	Rate    uint32 // sample rate in Hz
	Width   int    // sample width in bits
	Capture bool   // monitor stream (SDOUT) rather than playback
	PDM     bool   // stream enters through the PDM interface
}

var clkTable = []struct {
	sysclk uint32
	rate   uint32
	cfg    uint8
}{
	{5644800, 44100, 0x00},
	{5644800, 88200, 0x40},
	{6144000, 48000, 0x10},
	{6144000, 96000, 0x50},
	{11289600, 44100, 0x01},
	{11289600, 88200, 0x41},
	{11289600, 176400, 0x81},
	{12000000, 44100, 0x03},
	{12000000, 48000, 0x13},
	{12000000, 88200, 0x43},
	{12000000, 96000, 0x53},
	{12000000, 176400, 0x83},
	{12000000, 192000, 0x93},
	{12288000, 48000, 0x11},
	{12288000, 96000, 0x51},
	{12288000, 192000, 0x91},
	{13000000, 44100, 0x07},
	{13000000, 48000, 0x17},
	{13000000, 88200, 0x47},
	{13000000, 96000, 0x57},
	{13000000, 176400, 0x87},
	{13000000, 192000, 0x97},
	{22579200, 44100, 0x02},
	{22579200, 88200, 0x42},
	{22579200, 176400, 0x82},
	{24000000, 44100, 0x0b},
	{24000000, 48000, 0x1b},
	{24000000, 88200, 0x4b},
	{24000000, 96000, 0x5b},
	{24000000, 176400, 0x8b},
	{24000000, 192000, 0x9b},
	{24576000, 48000, 0x12},
	{24576000, 96000, 0x52},
	{24576000, 192000, 0x92},
	{26000000, 44100, 0x0f},
	{26000000, 48000, 0x1f},
	{26000000, 88200, 0x4f},
	{26000000, 96000, 0x5f},
	{26000000, 176400, 0x8f},
	{26000000, 192000, 0x9f},
}

var (
	pcmRates = []uint32{8000, 16000, 44100, 48000, 88200, 96000, 176400, 192000}
	pdmRates = []uint32{44100, 48000, 88200, 96000}
)

func contains(vs []uint32, v uint32) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

// ClockConfig returns the CLK_CTL2 value for a system clock and sample rate.
func ClockConfig(sysclk, rate uint32) (uint8, error) {
	for _, c := range clkTable {
		if c.sysclk == sysclk && c.rate == rate {
			return c.cfg, nil
		}
	}
	return 0, fmt.Errorf("%w: unsupported clock/rate %d:%d", ErrInvalidArgument, sysclk, rate)
}

// SerialClocks returns the CLK_CTL3 serial-clocks-per-frame encoding for a
// bit clock and sample rate.
// In master mode, only 32 and 64 clocks per frame are supported.
func SerialClocks(sclk, rate uint32, slave bool) (uint8, error) {
	if rate == 0 || sclk%rate != 0 {
		return 0, fmt.Errorf("%w: sclk/fs ratio %d:%d is not an integer", ErrInvalidArgument, sclk, rate)
	}
	ratio := sclk / rate
	if ratio == 0 || ratio%4 != 0 {
		return 0, fmt.Errorf("%w: unsupported sclk/fs ratio %d:%d", ErrInvalidArgument, sclk, rate)
	}

	v := ratio/4 - 1
	switch v {
	case regs.SP_SCLKS_32FS, regs.SP_SCLKS_64FS:
		return uint8(v), nil
	case regs.SP_SCLKS_48FS:
		if slave {
			return uint8(v), nil
		}
	}
	return 0, fmt.Errorf("%w: sclk/fs ratio %d not supported in %s mode", ErrInvalidArgument, ratio, msMode(slave))
}

func msMode(slave bool) string {
	if slave {
		return "slave"
	}
	return "master"
}

// SetFormat configures the PCM serial port.
func (dev *Device) SetFormat(f Format) error {
	switch f.Protocol {
	case ProtoI2S, ProtoDSPA:
	default:
		return fmt.Errorf("%w: invalid PCM protocol %v", ErrInvalidArgument, f.Protocol)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	ms := uint8(0)
	if f.Master {
		ms = 1
	}
	err := dev.regs.UpdateBits(regs.CLK_CTL1, regs.MS_MASK, ms<<regs.MS_SHIFT)
	if err != nil {
		return fmt.Errorf("cs35l35: could not set master/slave mode: %w", err)
	}
	dev.st.slaveMode = !f.Master
	dev.st.tdmMode = f.Protocol == ProtoDSPA

	return nil
}

// SetPDMFormat configures the PDM interface, which only supports slave mode.
func (dev *Device) SetPDMFormat(f Format) error {
	if f.Master {
		return fmt.Errorf("%w: PDM format is slave mode only", ErrInvalidArgument)
	}
	if f.Protocol != ProtoPDM {
		return fmt.Errorf("%w: invalid PDM protocol %v", ErrInvalidArgument, f.Protocol)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.st.slaveMode = true

	return nil
}

// SetSysClock selects the system clock source and its frequency.
func (dev *Device) SetSysClock(src ClockSource, freq uint32) error {
	var clksrc uint8
	switch src {
	case SourceMCLK:
		clksrc = regs.CLK_SOURCE_MCLK
	case SourceSCLK:
		clksrc = regs.CLK_SOURCE_SCLK
	case SourcePDM:
		clksrc = regs.CLK_SOURCE_PDM
	default:
		return fmt.Errorf("%w: invalid clock source %v", ErrInvalidArgument, src)
	}

	switch freq {
	case 5644800, 6144000, 11289600, 12000000, 12288000,
		13000000, 22579200, 24000000, 24576000, 26000000:
	default:
		return fmt.Errorf("%w: invalid clock frequency %d", ErrInvalidArgument, freq)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.regs.UpdateBits(regs.CLK_CTL1, regs.CLK_SOURCE_MASK, clksrc<<regs.CLK_SOURCE_SHIFT)
	if err != nil {
		return fmt.Errorf("cs35l35: could not set clock source: %w", err)
	}
	dev.st.sysclk = freq

	return nil
}

// SetSerialClock records the frequency of the serial bit clock.
func (dev *Device) SetSerialClock(freq uint32) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.st.sclk = freq
}

// HWParams programs the clocking and sample depth for a stream.
func (dev *Device) HWParams(p Params) error {
	rates := pcmRates
	if p.PDM {
		rates = pdmRates
	}
	if !contains(rates, p.Rate) {
		return fmt.Errorf("%w: unsupported sample rate %d", ErrInvalidArgument, p.Rate)
	}

	var depth uint8
	switch p.Width {
	case 8, 16:
		depth = regs.SDIN_DEPTH_16
	case 24:
		depth = regs.SDIN_DEPTH_24
	default:
		if !p.Capture {
			return fmt.Errorf("%w: unsupported sample width %d", ErrInvalidArgument, p.Width)
		}
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	cfg, err := ClockConfig(dev.st.sysclk, p.Rate)
	if err != nil {
		return err
	}
	dev.st.pdmMode = p.PDM

	rw := rwer{m: dev.regs}
	rw.update(regs.CLK_CTL2, regs.CLK_CTL2_MASK, cfg)

	// Rev A0 errata: the class-H weak-drive path ignores a non-zero
	// CH_WKFET_DELAY at these serial-port rates.
	if sr := cfg & regs.SP_RATE_MASK; dev.cfg.ClassH.WkFETDisable == 0 && (sr == 0x01 || sr == 0x03) {
		rw.update(regs.CLASS_H_FET_DRIVE_CTL, regs.CH_WKFET_DEL_MASK, 0)
	}

	if !p.Capture {
		rw.update(regs.AUDIN_DEPTH_CTL, regs.AUDIN_DEPTH_MASK, depth<<regs.AUDIN_DEPTH_SHIFT)
		if dev.cfg.Stereo {
			rw.update(regs.AUDIN_DEPTH_CTL, regs.ADVIN_DEPTH_MASK, depth<<regs.ADVIN_DEPTH_SHIFT)
		}
	}
	if rw.err != nil {
		return fmt.Errorf("cs35l35: could not program stream parameters: %w", rw.err)
	}

	if dev.st.pdmMode {
		return nil
	}

	sclks, err := SerialClocks(dev.st.sclk, p.Rate, dev.st.slaveMode)
	if err != nil {
		dev.msg.Printf("invalid serial clock configuration: %+v", err)
		return err
	}
	err = dev.regs.UpdateBits(regs.CLK_CTL3, regs.SP_SCLKS_MASK, sclks<<regs.SP_SCLKS_SHIFT)
	if err != nil {
		return fmt.Errorf("cs35l35: could not set serial clocks per frame: %w", err)
	}

	return nil
}
