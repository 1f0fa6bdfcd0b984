// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/caden602/NIST-LAC1550/protocol/crc"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestEncode(t *testing.T) {
	raw, err := Encode(Frame{Destination: 0x42, Source: 0x11, Command: 0x04, Payload: []byte{0x0F, 0x06}})
	if err != nil {
		t.Fatal(err)
	}
	// Source 0x11 collides with XON and must be escaped.
	want := []byte{0x0D, 0x42, 0x5E, 0x51, 0x04, 0x0F, 0x06, 0x94, 0xC0, 0x0A}
	if !bytes.Equal(raw, want) {
		t.Fatalf("Encode mismatch.\nWant: % X\nGot:  % X", want, raw)
	}
}

func TestEncodeEscapesHeader(t *testing.T) {
	f := Frame{Destination: SOT, Source: EOT, Command: SOE, Payload: []byte{XOFF}}
	raw, err := Encode(f)
	if err != nil {
		t.Fatal(err)
	}
	inner := raw[1 : len(raw)-1]
	if bytes.IndexByte(inner, SOT) >= 0 || bytes.IndexByte(inner, EOT) >= 0 {
		t.Fatalf("delimiter inside frame: % X", raw)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	frames := []Frame{
		{Destination: 0x42, Source: 0x11, Command: 0x04, Payload: []byte{0x0F, 0x06}},
		{Destination: 0x01, Source: 0x02, Command: 0x00},
		{Destination: 0xFF, Source: 0x00, Command: 0x08, Payload: []byte{0x0F, 0x01, 0x0A, 0x18}},
		{Destination: 0x5E, Source: 0x0D, Command: 0x0A, Payload: bytes.Repeat([]byte{0x5E, 0x0A}, 40)},
	}
	for _, f := range frames {
		raw, err := Encode(f)
		if err != nil {
			t.Fatalf("Encode(%v): %v", f, err)
		}
		got, err := Decode(raw)
		if err != nil {
			t.Fatalf("Decode(% X): %v", raw, err)
		}
		if diff := cmp.Diff(f, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}

		body, err := Unstuff(raw[1 : len(raw)-1])
		if err != nil {
			t.Fatal(err)
		}
		if !crc.Verify(body) {
			t.Errorf("checksum of %v does not verify", f)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	valid, _ := Encode(Frame{Destination: 0x42, Source: 0x20, Command: 0x04, Payload: []byte{0x01}})

	body := crc.Append([]byte{0x42, 0x20, 0x04, 0x01})
	body[len(body)-1] ^= 0x01
	badCRC := wrap(body)

	short := wrap(crc.Append([]byte{0x42}))

	tests := []struct {
		name  string
		raw   []byte
		check func(error) bool
	}{
		{"Empty", nil, isFraming},
		{"MissingSOT", valid[1:], isFraming},
		{"MissingEOT", valid[:len(valid)-1], isFraming},
		{"TrailingEscape", []byte{SOT, 0x42, 0x20, 0x04, SOE, EOT}, isFraming},
		{"BadChecksum", badCRC, isChecksum},
		{"TooShort", short, isLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			if !tt.check(err) {
				t.Errorf("Decode(% X) error = %v", tt.raw, err)
			}
			if !IsDecodeError(err) {
				t.Errorf("IsDecodeError(%v) = false", err)
			}
		})
	}
}

func TestEncodePayloadTooLarge(t *testing.T) {
	c, err := NewCodec(Config{MaxPayload: 4})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Encode(Frame{Payload: make([]byte, 5)})
	if !isLength(err) {
		t.Fatalf("expected LengthError, got %v", err)
	}
}

// Every single-bit error in the checksummed region must be caught by the CRC.
func TestSingleBitFlipDetected(t *testing.T) {
	f := Frame{Destination: 0x42, Source: 0x11, Command: 0x08, Payload: []byte{0x0F, 0x01, 0x0A, 0x18, 0x77}}
	raw, err := Encode(f)
	if err != nil {
		t.Fatal(err)
	}
	body, err := Unstuff(raw[1 : len(raw)-1])
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < len(body); i++ {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), body...)
			flipped[i] ^= 1 << bit

			if _, err := Decode(wrap(flipped)); !isChecksum(err) {
				t.Fatalf("flip byte %d bit %d: expected ChecksumError, got %v", i, bit, err)
			}
		}
	}
}

// Flipping bits of the stuffed wire bytes either breaks the escaping or the
// checksum; it never yields a valid frame.
func TestWireBitFlipRejected(t *testing.T) {
	raw, err := Encode(Frame{Destination: 0x42, Source: 0x20, Command: 0x08, Payload: []byte{0x0F, 0x5E, 0x0A, 0x30}})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(raw)-1; i++ {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), raw...)
			flipped[i] ^= 1 << bit
			if _, err := Decode(flipped); err == nil {
				t.Fatalf("flip byte %d bit %d decoded without error", i, bit)
			} else if !IsDecodeError(err) {
				t.Fatalf("flip byte %d bit %d: unexpected error %v", i, bit, err)
			}
		}
	}
}

func TestAliases(t *testing.T) {
	c, err := NewCodec(Config{Aliases: []Alias{{Canonical: 0x42, Wire: [2]byte{0x7E, 0x02}}}})
	if err != nil {
		t.Fatal(err)
	}

	f := Frame{Destination: 0x42, Source: 0x20, Command: 0x04, Payload: []byte{0x0F}}
	raw, err := c.Encode(f)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte{SOT, 0x7E, 0x02, 0x20}) {
		t.Fatalf("destination not expanded: % X", raw)
	}

	got, err := c.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f, got); diff != "" {
		t.Errorf("alias round trip mismatch (-want +got):\n%s", diff)
	}

	// A peer reporting its own address through the alias is folded back.
	wire := wrap(crc.Append([]byte{0x20, 0x7E, 0x02, 0x08, 0x0F, 0x01}))
	got, err = c.Decode(wire)
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != 0x42 || got.Destination != 0x20 || got.Command != 0x08 {
		t.Errorf("alias not folded: %v", got)
	}

	// Without the table the same bytes are read literally.
	got, err = Decode(wire)
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != 0x7E || got.Command != 0x02 {
		t.Errorf("default codec folded an alias: %v", got)
	}
}

func TestNewAliasTableRejectsAmbiguity(t *testing.T) {
	if _, err := NewAliasTable(
		Alias{Canonical: 0x42, Wire: [2]byte{0x7E, 0x02}},
		Alias{Canonical: 0x42, Wire: [2]byte{0x7E, 0x03}},
	); err == nil {
		t.Error("duplicate canonical address accepted")
	}
	if _, err := NewAliasTable(
		Alias{Canonical: 0x42, Wire: [2]byte{0x7E, 0x02}},
		Alias{Canonical: 0x43, Wire: [2]byte{0x7E, 0x02}},
	); err == nil {
		t.Error("duplicate wire sequence accepted")
	}
}

// wrap stuffs an already checksummed body and adds the delimiters.
func wrap(body []byte) []byte {
	raw := append([]byte{SOT}, Stuff(body)...)
	return append(raw, EOT)
}

func isFraming(err error) bool {
	var fe *FramingError
	return errors.As(err, &fe)
}

func isChecksum(err error) bool {
	var ce *ChecksumError
	return errors.As(err, &ce)
}

func isLength(err error) bool {
	var le *LengthError
	return errors.As(err, &le)
}
