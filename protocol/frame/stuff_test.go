// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package frame

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestStuff(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"Empty", nil, []byte{}},
		{"Plain", []byte{0x42, 0x04, 0xFF}, []byte{0x42, 0x04, 0xFF}},
		{"SOT", []byte{0x0D}, []byte{0x5E, 0x4D}},
		{"EOT", []byte{0x0A}, []byte{0x5E, 0x4A}},
		{"XON", []byte{0x11}, []byte{0x5E, 0x51}},
		{"XOFF", []byte{0x13}, []byte{0x5E, 0x53}},
		{"SOE", []byte{0x5E}, []byte{0x5E, 0x9E}},
		{"Mixed", []byte{0x01, 0x0A, 0x02, 0x5E}, []byte{0x01, 0x5E, 0x4A, 0x02, 0x5E, 0x9E}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Stuff(tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Stuff(% X) = % X, want % X", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnstuffMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"TrailingSOE", []byte{0x01, 0x5E}},
		{"EscapedNonReserved", []byte{0x5E, 0x41}},
		{"EscapedPlainByte", []byte{0x5E, 0x00}},
		{"LiteralSOT", []byte{0x01, 0x0D}},
		{"LiteralXON", []byte{0x11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unstuff(tt.in)
			var fe *FramingError
			if !errors.As(err, &fe) {
				t.Fatalf("Unstuff(% X) error = %v, want FramingError", tt.in, err)
			}
		})
	}
}

func TestStuffRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		in := make([]byte, rng.Intn(48))
		rng.Read(in)

		stuffed := Stuff(in)
		if bytes.IndexByte(stuffed, SOT) >= 0 || bytes.IndexByte(stuffed, EOT) >= 0 {
			t.Fatalf("Stuff(% X) = % X contains a delimiter", in, stuffed)
		}

		out, err := Unstuff(stuffed)
		if err != nil {
			t.Fatalf("Unstuff(% X): %v", stuffed, err)
		}
		if !bytes.Equal(out, in) {
			t.Fatalf("round trip mismatch\nin:  % X\nout: % X", in, out)
		}
	}
}

func TestStuffAllBytes(t *testing.T) {
	in := make([]byte, 256)
	for i := range in {
		in[i] = byte(i)
	}
	stuffed := Stuff(in)
	if len(stuffed) != len(in)+5 {
		t.Errorf("stuffed length %d, want %d", len(stuffed), len(in)+5)
	}
	out, err := Unstuff(stuffed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, in) {
		t.Fatal("round trip over every byte value failed")
	}
}

func TestNewStufferRejectsBadSentinels(t *testing.T) {
	dup := DefaultSentinels()
	dup.XOFF = dup.XON
	if _, err := NewStuffer(dup); err == nil {
		t.Error("duplicate sentinels accepted")
	}

	clash := DefaultSentinels()
	clash.XOFF = 0x4D // SOT + EscapeOffset
	if _, err := NewStuffer(clash); err == nil {
		t.Error("sentinel whose escaped form is reserved accepted")
	}
}
