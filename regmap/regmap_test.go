// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmap

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
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

type fakeBus struct {
	hw  [256]uint8
	ops []op
	err error
}

func (bus *fakeBus) ReadReg(reg uint8) (uint8, error) {
	bus.ops = append(bus.ops, op{reg: reg})
	if bus.err != nil {
		return 0, bus.err
	}
	return bus.hw[reg], nil
}

func (bus *fakeBus) WriteReg(reg, v uint8) error {
	bus.ops = append(bus.ops, op{w: true, reg: reg, v: v})
	if bus.err != nil {
		return bus.err
	}
	bus.hw[reg] = v
	return nil
}

func newTestMap(bus *fakeBus) *Map {
	return New(bus, Config{
		MaxRegister: 0x20,
		Defaults: []Default{
			{0x01, 0x11},
			{0x02, 0x22},
			{0x05, 0x55},
		},
		Writeable: func(reg uint8) bool { return reg != 0x00 },
		Volatile:  func(reg uint8) bool { return reg == 0x10 || reg == 0x11 },
		Precious:  func(reg uint8) bool { return reg == 0x10 },
	})
}

func TestReadCache(t *testing.T) {
	bus := new(fakeBus)
	bus.hw[0x03] = 0x33
	bus.hw[0x10] = 0xaa
	m := newTestMap(bus)

	for _, tc := range []struct {
		reg  uint8
		want uint8
	}{
		{0x01, 0x11},
		{0x03, 0x33},
		{0x03, 0x33},
		{0x10, 0xaa},
		{0x10, 0xaa},
	} {
		got, err := m.Read(tc.reg)
		if err != nil {
			t.Fatalf("could not read 0x%02x: %+v", tc.reg, err)
		}
		if got != tc.want {
			t.Fatalf("invalid value for 0x%02x: got=0x%02x, want=0x%02x", tc.reg, got, tc.want)
		}
	}

	want := []op{{reg: 0x03}, {reg: 0x10}, {reg: 0x10}}
	if !reflect.DeepEqual(bus.ops, want) {
		t.Fatalf("invalid bus transactions:\ngot= %v\nwant=%v", bus.ops, want)
	}

	_, err := m.Read(0x21)
	if !errors.Is(err, ErrNotReadable) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrNotReadable)
	}
}

func TestWrite(t *testing.T) {
	bus := new(fakeBus)
	m := newTestMap(bus)

	err := m.Write(0x00, 1)
	if !errors.Is(err, ErrNotWriteable) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrNotWriteable)
	}

	err = m.Write(0x04, 0x44)
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}
	bus.hw[0x04] = 0x00 // cached value must win.

	v, err := m.Read(0x04)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if v != 0x44 {
		t.Fatalf("invalid cached value: got=0x%02x, want=0x44", v)
	}
}

func TestUpdateBits(t *testing.T) {
	bus := new(fakeBus)
	m := newTestMap(bus)

	err := m.UpdateBits(0x01, 0x0f, 0x01)
	if err != nil {
		t.Fatalf("could not update bits: %+v", err)
	}
	if len(bus.ops) != 0 {
		t.Fatalf("unchanged value should not hit the bus: %v", bus.ops)
	}

	err = m.UpdateBits(0x01, 0x0f, 0x0c)
	if err != nil {
		t.Fatalf("could not update bits: %+v", err)
	}

	err = m.WriteBits(0x02, 0x80, 0x00)
	if err != nil {
		t.Fatalf("could not write bits: %+v", err)
	}

	want := []op{
		{w: true, reg: 0x01, v: 0x1c},
		{w: true, reg: 0x02, v: 0x22},
	}
	if !reflect.DeepEqual(bus.ops, want) {
		t.Fatalf("invalid bus transactions:\ngot= %v\nwant=%v", bus.ops, want)
	}
}

func TestCacheOnlySync(t *testing.T) {
	bus := new(fakeBus)
	m := newTestMap(bus)

	err := m.Patch([]Default{{0x1f, 0x99}, {0x1f, 0x00}})
	if err != nil {
		t.Fatalf("could not apply patch: %+v", err)
	}

	for _, d := range []Default{{0x03, 0x30}, {0x04, 0x40}} {
		err := m.Write(d.Reg, d.Val)
		if err != nil {
			t.Fatalf("could not write: %+v", err)
		}
	}
	bus.ops = bus.ops[:0]

	m.SetCacheOnly(true)
	m.MarkDirty()

	err = m.Write(0x03, 0x31)
	if err != nil {
		t.Fatalf("could not write in cache-only mode: %+v", err)
	}
	err = m.UpdateBits(0x05, 0xf0, 0x00)
	if err != nil {
		t.Fatalf("could not update in cache-only mode: %+v", err)
	}
	_, err = m.Read(0x10)
	if !errors.Is(err, ErrCacheOnly) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrCacheOnly)
	}
	err = m.Sync()
	if !errors.Is(err, ErrCacheOnly) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrCacheOnly)
	}

	if len(bus.ops) != 0 {
		t.Fatalf("bus transactions in cache-only mode: %v", bus.ops)
	}

	m.SetCacheOnly(false)
	err = m.Sync()
	if err != nil {
		t.Fatalf("could not sync: %+v", err)
	}

	want := []op{
		{w: true, reg: 0x1f, v: 0x99},
		{w: true, reg: 0x1f, v: 0x00},
		{w: true, reg: 0x01, v: 0x11},
		{w: true, reg: 0x02, v: 0x22},
		{w: true, reg: 0x03, v: 0x31},
		{w: true, reg: 0x04, v: 0x40},
		{w: true, reg: 0x05, v: 0x05},
	}
	if !reflect.DeepEqual(bus.ops, want) {
		t.Fatalf("invalid sync transactions:\ngot= %v\nwant=%v", bus.ops, want)
	}

	for _, d := range []Default{{0x03, 0x31}, {0x04, 0x40}, {0x05, 0x05}} {
		v, err := m.Read(d.Reg)
		if err != nil {
			t.Fatalf("could not read 0x%02x: %+v", d.Reg, err)
		}
		if v != d.Val || bus.hw[d.Reg] != d.Val {
			t.Fatalf("invalid value for 0x%02x: cache=0x%02x, hw=0x%02x, want=0x%02x",
				d.Reg, v, bus.hw[d.Reg], d.Val,
			)
		}
	}

	bus.ops = bus.ops[:0]
	err = m.Sync()
	if err != nil {
		t.Fatalf("could not sync clean map: %+v", err)
	}
	if len(bus.ops) != 0 {
		t.Fatalf("clean sync hit the bus: %v", bus.ops)
	}
}

func TestBulkRead(t *testing.T) {
	bus := new(fakeBus)
	bus.hw[0x10] = 1
	bus.hw[0x11] = 2
	m := newTestMap(bus)

	vs, err := m.BulkRead(0x10, 2)
	if err != nil {
		t.Fatalf("could not bulk read: %+v", err)
	}
	if got, want := vs, []uint8{1, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid bulk read: got=%v, want=%v", got, want)
	}
}

func TestIOError(t *testing.T) {
	bus := &fakeBus{err: fmt.Errorf("nack")}
	m := newTestMap(bus)

	_, err := m.Read(0x10)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrIO)
	}
	var ioerr *IOError
	if !errors.As(err, &ioerr) {
		t.Fatalf("error is not an IOError: %+v", err)
	}
	if ioerr.Op != "read" || ioerr.Reg != 0x10 {
		t.Fatalf("invalid io error: %+v", ioerr)
	}

	err = m.Write(0x03, 1)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrIO)
	}
}

type fakeConn struct {
	addr uint8
	regs map[uint8]uint8
}

func (c *fakeConn) ReadReg(addr, reg uint8) (uint8, error) {
	if addr != c.addr {
		return 0, fmt.Errorf("no slave at 0x%x", addr)
	}
	return c.regs[reg], nil
}

func (c *fakeConn) WriteReg(addr, reg, v uint8) error {
	if addr != c.addr {
		return fmt.Errorf("no slave at 0x%x", addr)
	}
	c.regs[reg] = v
	return nil
}

func (c *fakeConn) Close() error { return nil }

func TestSMBus(t *testing.T) {
	conn := &fakeConn{addr: 0x40, regs: make(map[uint8]uint8)}
	defer func(f func(int, uint8) (smbusConn, error)) { smbusOpen = f }(smbusOpen)
	smbusOpen = func(bus int, addr uint8) (smbusConn, error) {
		if bus != 1 {
			return nil, fmt.Errorf("no such bus %d", bus)
		}
		return conn, nil
	}

	_, err := OpenSMBus(2, 0x40)
	if err == nil {
		t.Fatalf("expected an error")
	}

	bus, err := OpenSMBus(1, 0x40)
	if err != nil {
		t.Fatalf("could not open smbus: %+v", err)
	}
	defer bus.Close()

	m := New(bus, Config{MaxRegister: 0x7f})
	err = m.Write(0x06, 0x42)
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}
	if got := conn.regs[0x06]; got != 0x42 {
		t.Fatalf("invalid slave register: got=0x%x, want=0x42", got)
	}
}
