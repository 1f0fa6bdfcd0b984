// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package frame implements the wire format of the LAC1550 register protocol:
//
//	SOT | stuffed( DEST SRC CMD PAYLOAD CRC_MSB CRC_LSB ) | EOT
//
// Every byte between the delimiters is subject to stuffing, so SOT and EOT
// never occur inside a frame.
package frame

import (
	"encoding/hex"
	"fmt"

	"github.com/caden602/NIST-LAC1550/protocol/crc"
)

// Frame is one decoded protocol message.
type Frame struct {
	Destination byte
	Source      byte
	Command     byte
	Payload     []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("dst=%#02x src=%#02x cmd=%#02x payload=%s", f.Destination, f.Source, f.Command, hex.EncodeToString(f.Payload))
}

// Config configures a Codec. The zero value selects the defaults.
type Config struct {
	Sentinels  Sentinels
	Aliases    []Alias
	MaxPayload int
}

// Codec encodes and decodes wire frames.
type Codec struct {
	sentinels  Sentinels
	stuffer    *Stuffer
	aliases    *AliasTable
	maxPayload int
}

var defaultCodec = &Codec{
	sentinels:  DefaultSentinels(),
	stuffer:    defaultStuffer,
	maxPayload: DefaultMaxPayload,
}

// DefaultCodec returns a codec with the default sentinels and no aliases.
func DefaultCodec() *Codec {
	return defaultCodec
}

// NewCodec allocates a Codec for cfg.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Sentinels == (Sentinels{}) {
		cfg.Sentinels = DefaultSentinels()
	}
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = DefaultMaxPayload
	}
	st, err := NewStuffer(cfg.Sentinels)
	if err != nil {
		return nil, err
	}
	aliases, err := NewAliasTable(cfg.Aliases...)
	if err != nil {
		return nil, err
	}
	return &Codec{
		sentinels:  cfg.Sentinels,
		stuffer:    st,
		aliases:    aliases,
		maxPayload: cfg.MaxPayload,
	}, nil
}

// Sentinels returns the sentinel set of the codec.
func (c *Codec) Sentinels() Sentinels {
	return c.sentinels
}

// MaxWireSize returns the longest wire frame the codec can produce: an aliased
// header, a full payload and the checksum, every byte escaped, plus both
// delimiters.
func (c *Codec) MaxWireSize() int {
	return 2*(HeaderSize+2+c.maxPayload+ChecksumSize) + 2
}

// NewReader allocates a Reader over src whose buffer bound fits the largest
// frame of the codec.
func (c *Codec) NewReader(src Source) *Reader {
	r := NewReader(src, c.sentinels)
	r.MaxBuffer = max(DefaultMaxBuffer, 2*c.MaxWireSize())
	return r
}

// Encode encodes f into a wire frame:
//
//	SOT         : 1 byte
//	Destination : 1 byte (2 if aliased)
//	Source      : 1 byte (2 if aliased)
//	Command     : 1 byte
//	Payload     : 0 up to MaxPayload bytes
//	CRC         : 2 bytes, MSB first
//	EOT         : 1 byte
//
// with everything between SOT and EOT stuffed.
func (c *Codec) Encode(f Frame) ([]byte, error) {
	if len(f.Payload) > c.maxPayload {
		return nil, &LengthError{Length: len(f.Payload), Max: c.maxPayload}
	}

	body := make([]byte, 0, HeaderSize+2+len(f.Payload)+ChecksumSize)
	body = c.aliases.expand(body, f.Destination)
	body = c.aliases.expand(body, f.Source)
	body = append(body, f.Command)
	body = append(body, f.Payload...)
	body = crc.Append(body)

	raw := make([]byte, 0, len(body)+len(body)/4+2)
	raw = append(raw, c.sentinels.SOT)
	raw = c.stuffer.Stuff(raw, body)
	raw = append(raw, c.sentinels.EOT)
	return raw, nil
}

// Decode parses one wire frame including both delimiters.
func (c *Codec) Decode(raw []byte) (Frame, error) {
	if len(raw) < 2 {
		return Frame{}, &FramingError{Reason: fmt.Sprintf("frame of %d bytes has no room for delimiters", len(raw))}
	}
	if raw[0] != c.sentinels.SOT {
		return Frame{}, &FramingError{Reason: fmt.Sprintf("expected SOT, got %#02x", raw[0])}
	}
	if raw[len(raw)-1] != c.sentinels.EOT {
		return Frame{}, &FramingError{Reason: fmt.Sprintf("expected EOT, got %#02x", raw[len(raw)-1])}
	}

	body, err := c.stuffer.Unstuff(raw[1 : len(raw)-1])
	if err != nil {
		return Frame{}, err
	}
	length := len(body)
	if length < MinSize {
		return Frame{}, &LengthError{Length: length, Min: MinSize}
	}

	if !crc.Verify(body) {
		return Frame{}, &ChecksumError{
			Received: uint16(body[length-2])<<8 | uint16(body[length-1]),
			Computed: crc.Checksum(body[:length-ChecksumSize]),
		}
	}
	body = body[:length-ChecksumSize]

	var f Frame
	var n, used int
	f.Destination, n = c.aliases.fold(body)
	body, used = body[n:], n
	if len(body) < 2 {
		return Frame{}, &LengthError{Length: length, Min: used + 2 + ChecksumSize}
	}
	f.Source, n = c.aliases.fold(body)
	body, used = body[n:], used+n
	if len(body) < 1 {
		return Frame{}, &LengthError{Length: length, Min: used + 1 + ChecksumSize}
	}
	f.Command = body[0]
	if len(body) > 1 {
		f.Payload = append([]byte(nil), body[1:]...)
	}
	return f, nil
}

// Encode encodes f with the default codec.
func Encode(f Frame) ([]byte, error) {
	return defaultCodec.Encode(f)
}

// Decode decodes raw with the default codec.
func Decode(raw []byte) (Frame, error) {
	return defaultCodec.Decode(raw)
}
