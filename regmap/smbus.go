// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmap

import (
	"fmt"

	"github.com/go-daq/smbus"
)

type smbusConn interface {
	ReadReg(addr, reg uint8) (uint8, error)
	WriteReg(addr, reg, v uint8) error
	Close() error
}

var (
	smbusOpen = smbusOpenImpl
)

func smbusOpenImpl(bus int, addr uint8) (smbusConn, error) {
	return smbus.Open(bus, addr)
}

// SMBus is a register bus talking to a single slave on a SMBus/I2C adapter.
type SMBus struct {
	bus  int
	addr uint8
	conn smbusConn
}

// OpenSMBus opens the i2c adapter number bus for the slave at addr.
func OpenSMBus(bus int, addr uint8) (*SMBus, error) {
	conn, err := smbusOpen(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("regmap: could not open i2c-%d (addr=0x%x): %w", bus, addr, err)
	}
	return &SMBus{bus: bus, addr: addr, conn: conn}, nil
}

func (b *SMBus) ReadReg(reg uint8) (uint8, error) {
	return b.conn.ReadReg(b.addr, reg)
}

func (b *SMBus) WriteReg(reg, v uint8) error {
	return b.conn.WriteReg(b.addr, reg, v)
}

func (b *SMBus) Close() error {
	return b.conn.Close()
}

var _ Bus = (*SMBus)(nil)
