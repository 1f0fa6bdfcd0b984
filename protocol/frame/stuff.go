// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package frame

import "fmt"

// Stuffer escapes reserved bytes so that they never appear literally inside
// a frame. A reserved byte b is sent as SOE, b+EscapeOffset.
//
// For sentinels below 0x40 the escape is b|0x40 and the unescape b&0x3F. SOE
// itself (0x5E) already has bit 6 set, so the arithmetic form is the only
// pairing that round-trips the whole reserved set.
type Stuffer struct {
	soe      byte
	reserved [256]bool
}

var defaultStuffer = mustStuffer(DefaultSentinels())

func mustStuffer(s Sentinels) *Stuffer {
	st, err := NewStuffer(s)
	if err != nil {
		panic(err)
	}
	return st
}

// NewStuffer validates the sentinel set and returns a Stuffer for it.
func NewStuffer(s Sentinels) (*Stuffer, error) {
	st := &Stuffer{soe: s.SOE}
	for _, b := range s.list() {
		if st.reserved[b] {
			return nil, fmt.Errorf("frame: duplicate sentinel %#02x", b)
		}
		st.reserved[b] = true
	}
	for _, b := range s.list() {
		if esc := b + EscapeOffset; st.reserved[esc] {
			return nil, fmt.Errorf("frame: escaped form %#02x of sentinel %#02x is itself reserved", esc, b)
		}
	}
	return st, nil
}

// IsReserved reports whether b must be escaped.
func (st *Stuffer) IsReserved(b byte) bool {
	return st.reserved[b]
}

// Stuff appends the escaped form of src to dst and returns the result.
func (st *Stuffer) Stuff(dst, src []byte) []byte {
	for _, b := range src {
		if st.reserved[b] {
			dst = append(dst, st.soe, b+EscapeOffset)
		} else {
			dst = append(dst, b)
		}
	}
	return dst
}

// Unstuff reverses Stuff.
func (st *Stuffer) Unstuff(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		b := src[i]
		if b == st.soe {
			i++
			if i == len(src) {
				return nil, &FramingError{Reason: "unterminated escape"}
			}
			v := src[i] - EscapeOffset
			if !st.reserved[v] {
				return nil, &FramingError{Reason: fmt.Sprintf("invalid escape %#02x at offset %d", src[i], i)}
			}
			out = append(out, v)
			continue
		}
		if st.reserved[b] {
			return nil, &FramingError{Reason: fmt.Sprintf("unescaped reserved byte %#02x at offset %d", b, i)}
		}
		out = append(out, b)
	}
	return out, nil
}

// Stuff escapes src with the default sentinel set.
func Stuff(src []byte) []byte {
	return defaultStuffer.Stuff(make([]byte, 0, len(src)+len(src)/4), src)
}

// Unstuff reverses Stuff with the default sentinel set.
func Unstuff(src []byte) ([]byte, error) {
	return defaultStuffer.Unstuff(src)
}
