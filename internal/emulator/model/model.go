// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package model

import (
	"errors"
	"fmt"
	"sync"
)

const (
	NumRegisters = 256
	MaxValueSize = 32

	// Each slot holds a length byte followed by MaxValueSize value bytes.
	SlotSize  = 1 + MaxValueSize
	TotalSize = NumRegisters * SlotSize
)

// ErrValueTooLong is returned for values that do not fit a slot.
var ErrValueTooLong = errors.New("model: value too long")

// RegisterFile holds the register values of an emulated node in a flat byte
// slice so that it can be backed by a file or a memory mapping.
type RegisterFile struct {
	mu   sync.RWMutex
	data []byte
}

// NewRegisterFile creates a new register file initialized to empty values.
func NewRegisterFile() *RegisterFile {
	return &RegisterFile{data: make([]byte, TotalSize)}
}

// NewRegisterFileFrom creates a register file backed by data, which must be
// TotalSize bytes long. Slots with a corrupt length byte read as empty.
func NewRegisterFileFrom(data []byte) (*RegisterFile, error) {
	if len(data) != TotalSize {
		return nil, fmt.Errorf("model: backing store of %d bytes, want %d", len(data), TotalSize)
	}
	return &RegisterFile{data: data}, nil
}

func slot(id byte) int {
	return int(id) * SlotSize
}

// Read returns a copy of the value stored for id. An unset register has an
// empty value.
func (m *RegisterFile) Read(id byte) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	off := slot(id)
	n := int(m.data[off])
	if n > MaxValueSize {
		n = 0
	}
	return append([]byte(nil), m.data[off+1:off+1+n]...)
}

// Write stores value for id.
func (m *RegisterFile) Write(id byte, value []byte) error {
	if len(value) > MaxValueSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrValueTooLong, len(value), MaxValueSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	off := slot(id)
	m.data[off] = byte(len(value))
	n := copy(m.data[off+1:off+SlotSize], value)
	clear(m.data[off+1+n : off+SlotSize])
	return nil
}

// IsSet reports whether a value was ever written for id.
func (m *RegisterFile) IsSet(id byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := m.data[slot(id)]
	return n > 0 && n <= MaxValueSize
}
