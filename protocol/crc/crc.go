// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc implements the 16-bit frame checksum.
//
// The checksum is CRC-16/XMODEM (poly 0x1021, init 0) computed with the
// byte-wise shift/xor recurrence rather than a lookup table. Running the
// accumulator over a message followed by its checksum (MSB first) leaves a
// residue of zero.
package crc

// CRC is an incremental checksum accumulator. The zero value is ready to use.
type CRC struct {
	value uint16
}

// Reset clears the accumulator.
func (crc *CRC) Reset() *CRC {
	crc.value = 0
	return crc
}

// PushByte folds one byte into the running state.
func (crc *CRC) PushByte(b byte) *CRC {
	v := crc.value
	v = v<<8 | v>>8
	v ^= uint16(b)
	v ^= (v & 0xff) >> 4
	v ^= v << 12
	v ^= (v & 0xff) << 5
	crc.value = v
	return crc
}

// PushBytes folds every byte of bs into the running state.
func (crc *CRC) PushBytes(bs []byte) *CRC {
	for _, b := range bs {
		crc.PushByte(b)
	}
	return crc
}

// Value returns the current state.
func (crc *CRC) Value() uint16 {
	return crc.value
}

// Checksum returns the checksum of bs.
func Checksum(bs []byte) uint16 {
	var crc CRC
	return crc.PushBytes(bs).Value()
}

// Verify reports whether bs, which must end with its own checksum MSB first,
// leaves a zero residue.
func Verify(bs []byte) bool {
	if len(bs) < 2 {
		return false
	}
	return Checksum(bs) == 0
}

// Append appends the checksum of bs to bs, MSB first.
func Append(bs []byte) []byte {
	sum := Checksum(bs)
	return append(bs, byte(sum>>8), byte(sum))
}
