// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package frame

// Sentinel bytes
const (
	SOT  byte = 0x0D
	EOT  byte = 0x0A
	XON  byte = 0x11
	XOFF byte = 0x13
	SOE  byte = 0x5E

	// EscapeOffset is added to a reserved byte when it is escaped.
	EscapeOffset byte = 0x40
)

const (
	HeaderSize   = 3 // destination, source, command
	ChecksumSize = 2
	MinSize      = HeaderSize + ChecksumSize

	DefaultMaxPayload = 1024
)

// CommandNack is the command code of a negative acknowledgement. Its payload
// is {operation, register, error code}.
const CommandNack byte = 0x00

// Default command codes
const (
	DefaultCommandAck       byte = 0x01
	DefaultCommandRead      byte = 0x04
	DefaultCommandReadReply byte = 0x08
	DefaultCommandWrite     byte = 0x06
)

// Sentinels holds the reserved byte values of one protocol instance.
type Sentinels struct {
	SOT  byte
	EOT  byte
	XON  byte
	XOFF byte
	SOE  byte
}

// DefaultSentinels returns the sentinel set used by the LAC1550 firmware.
func DefaultSentinels() Sentinels {
	return Sentinels{SOT: SOT, EOT: EOT, XON: XON, XOFF: XOFF, SOE: SOE}
}

func (s Sentinels) list() []byte {
	return []byte{s.SOT, s.EOT, s.XON, s.XOFF, s.SOE}
}

// Commands holds the command codes layered on top of the frame format.
// NACK is always CommandNack.
type Commands struct {
	Ack       byte
	Read      byte
	ReadReply byte
	Write     byte
}

// DefaultCommands returns the command codes used by the LAC1550 firmware.
func DefaultCommands() Commands {
	return Commands{
		Ack:       DefaultCommandAck,
		Read:      DefaultCommandRead,
		ReadReply: DefaultCommandReadReply,
		Write:     DefaultCommandWrite,
	}
}

// NACK error codes reported by the emulator. Firmware may report others.
const (
	NackUnsupported     byte = 0x01 // unknown command
	NackUnknownRegister byte = 0x02
	NackBadValue        byte = 0x03 // value length does not match the register
)
