// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regmap implements a cached map of 8-bit registers sitting on a
// slow bus (I2C/SMBus).
//
// A Map serializes all bus transactions behind a single mutex, mirrors
// non-volatile registers in memory, and supports a cache-only mode used
// while the physical device is held in reset: in that mode no bus
// transaction is issued and writes only update the mirror, to be replayed
// with Sync once the device is back.
package regmap // import "github.com/go-lpc/amp/regmap"

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrIO is matched (with errors.Is) by every bus transaction failure.
	ErrIO = errors.New("regmap: bus I/O error")

	ErrCacheOnly    = errors.New("regmap: register map in cache-only mode")
	ErrNotReadable  = errors.New("regmap: register not readable")
	ErrNotWriteable = errors.New("regmap: register not writeable")
)

// IOError describes a failed bus transaction.
type IOError struct {
	Op  string // "read" or "write"
	Reg uint8
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("regmap: could not %s register 0x%02x: %v", e.Op, e.Reg, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// Bus is the register transport.
type Bus interface {
	ReadReg(reg uint8) (uint8, error)
	WriteReg(reg, v uint8) error
}

// Default is a register/value pair.
type Default struct {
	Reg uint8
	Val uint8
}

// Config describes the register layout of a device.
//
// A nil Readable or Writeable func means every register is readable or
// writeable. A nil Volatile or Precious func means no register is.
type Config struct {
	MaxRegister uint8
	Defaults    []Default

	Readable  func(reg uint8) bool
	Writeable func(reg uint8) bool
	Volatile  func(reg uint8) bool
	Precious  func(reg uint8) bool
}

// Map is a cached register map.
type Map struct {
	mu  sync.Mutex
	bus Bus
	cfg Config

	cache     map[uint8]uint8
	cacheOnly bool
	dirty     bool
	patch     []Default
}

// New returns a register map over bus, with its cache seeded from the
// register defaults.
func New(bus Bus, cfg Config) *Map {
	m := &Map{
		bus:   bus,
		cfg:   cfg,
		cache: make(map[uint8]uint8, len(cfg.Defaults)),
	}
	for _, d := range cfg.Defaults {
		m.cache[d.Reg] = d.Val
	}
	return m
}

func (m *Map) readable(reg uint8) bool {
	if reg > m.cfg.MaxRegister {
		return false
	}
	return m.cfg.Readable == nil || m.cfg.Readable(reg)
}

func (m *Map) writeable(reg uint8) bool {
	if reg > m.cfg.MaxRegister {
		return false
	}
	return m.cfg.Writeable == nil || m.cfg.Writeable(reg)
}

func (m *Map) volatile(reg uint8) bool {
	return m.cfg.Volatile != nil && m.cfg.Volatile(reg)
}

func (m *Map) precious(reg uint8) bool {
	return m.cfg.Precious != nil && m.cfg.Precious(reg)
}

// cacheable reports whether reads of reg may be served from the cache.
// Precious registers (status latches) are always re-issued.
func (m *Map) cacheable(reg uint8) bool {
	return !m.volatile(reg) && !m.precious(reg)
}

func (m *Map) busRead(reg uint8) (uint8, error) {
	v, err := m.bus.ReadReg(reg)
	if err != nil {
		return 0, &IOError{Op: "read", Reg: reg, Err: err}
	}
	return v, nil
}

func (m *Map) busWrite(reg, v uint8) error {
	err := m.bus.WriteReg(reg, v)
	if err != nil {
		return &IOError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

// Read returns the value of register reg.
func (m *Map) Read(reg uint8) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read(reg)
}

func (m *Map) read(reg uint8) (uint8, error) {
	if !m.readable(reg) {
		return 0, fmt.Errorf("%w: 0x%02x", ErrNotReadable, reg)
	}

	if m.cacheable(reg) {
		if v, ok := m.cache[reg]; ok {
			return v, nil
		}
	}

	if m.cacheOnly {
		return 0, fmt.Errorf("%w: could not read register 0x%02x", ErrCacheOnly, reg)
	}

	v, err := m.busRead(reg)
	if err != nil {
		return 0, err
	}
	if m.cacheable(reg) {
		m.cache[reg] = v
	}
	return v, nil
}

// Write writes v to register reg.
func (m *Map) Write(reg, v uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(reg, v)
}

func (m *Map) write(reg, v uint8) error {
	if !m.writeable(reg) {
		return fmt.Errorf("%w: 0x%02x", ErrNotWriteable, reg)
	}

	if !m.volatile(reg) {
		m.cache[reg] = v
	}

	if m.cacheOnly {
		m.dirty = true
		return nil
	}

	return m.busWrite(reg, v)
}

// UpdateBits performs a read-modify-write of the bits selected by mask.
// The register is not written when its value would not change.
func (m *Map) UpdateBits(reg, mask, v uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(reg, mask, v, false)
}

// WriteBits is like UpdateBits but always issues the write.
func (m *Map) WriteBits(reg, mask, v uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(reg, mask, v, true)
}

func (m *Map) update(reg, mask, v uint8, force bool) error {
	orig, err := m.read(reg)
	if err != nil {
		return err
	}

	tmp := (orig &^ mask) | (v & mask)
	if tmp == orig && !force {
		return nil
	}

	return m.write(reg, tmp)
}

// BulkRead reads n consecutive registers starting at reg.
// Registers are read one at a time, in address order.
func (m *Map) BulkRead(reg uint8, n int) ([]uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vs := make([]uint8, n)
	for i := range vs {
		v, err := m.read(reg + uint8(i))
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

// SetCacheOnly enables or disables cache-only mode.
func (m *Map) SetCacheOnly(v bool) {
	m.mu.Lock()
	m.cacheOnly = v
	m.mu.Unlock()
}

// CacheOnly reports whether the map is in cache-only mode.
func (m *Map) CacheOnly() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cacheOnly
}

// MarkDirty forces the next Sync to write back the whole cache.
func (m *Map) MarkDirty() {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
}

// Dirty reports whether the cache holds values not yet written to the bus.
func (m *Map) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// Sync replays the register patch and then writes every cached,
// writeable register back to the bus, in address order.
func (m *Map) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cacheOnly {
		return fmt.Errorf("%w: could not sync", ErrCacheOnly)
	}
	if !m.dirty {
		return nil
	}

	for _, p := range m.patch {
		err := m.busWrite(p.Reg, p.Val)
		if err != nil {
			return fmt.Errorf("regmap: could not replay patch: %w", err)
		}
	}

	for _, reg := range m.keys() {
		if !m.writeable(reg) || m.volatile(reg) {
			continue
		}
		err := m.busWrite(reg, m.cache[reg])
		if err != nil {
			return fmt.Errorf("regmap: could not sync: %w", err)
		}
	}
	m.dirty = false

	return nil
}

// Patch writes seq directly to the bus, bypassing the cache, and records
// it so it is replayed before every subsequent Sync.
func (m *Map) Patch(seq []Default) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cacheOnly {
		return fmt.Errorf("%w: could not apply patch", ErrCacheOnly)
	}

	for _, p := range seq {
		err := m.busWrite(p.Reg, p.Val)
		if err != nil {
			return fmt.Errorf("regmap: could not apply patch: %w", err)
		}
	}
	m.patch = append(m.patch, seq...)
	return nil
}

// Cached returns a snapshot of the cache, in address order.
func (m *Map) Cached() []Default {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := m.keys()
	out := make([]Default, len(keys))
	for i, reg := range keys {
		out[i] = Default{Reg: reg, Val: m.cache[reg]}
	}
	return out
}

func (m *Map) keys() []uint8 {
	keys := make([]uint8, 0, len(m.cache))
	for reg := range m.cache {
		keys = append(keys, reg)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
