// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package register

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dates carry the year as an offset from this base.
const yearBase = 2000

// Value is a register value together with the tag that describes it. Raw
// holds the wire bytes; multi-byte integers are big-endian.
type Value struct {
	Type TypeTag
	Raw  []byte
}

// Decode checks raw against the size of tag and wraps it in a Value.
func Decode(tag TypeTag, raw []byte) (Value, error) {
	info := tag.Info()
	if info.Size > 0 && len(raw) != info.Size {
		return Value{}, &SizeError{Type: tag, Got: len(raw), Want: info.Size}
	}
	return Value{Type: tag, Raw: append([]byte(nil), raw...)}, nil
}

// Uint returns the value as an unsigned big-endian integer.
func (v Value) Uint() uint64 {
	var n uint64
	for _, b := range v.Raw {
		n = n<<8 | uint64(b)
	}
	return n
}

// Int returns the value as a sign-extended big-endian integer.
func (v Value) Int() int64 {
	switch len(v.Raw) {
	case 0:
		return 0
	case 1:
		return int64(int8(v.Raw[0]))
	case 2:
		return int64(int16(binary.BigEndian.Uint16(v.Raw)))
	case 4:
		return int64(int32(binary.BigEndian.Uint32(v.Raw)))
	}
	n := v.Uint()
	if bits := uint(len(v.Raw)) * 8; bits < 64 && n&(1<<(bits-1)) != 0 {
		n |= ^uint64(0) << bits
	}
	return int64(n)
}

// Bool reports whether any value byte is non-zero.
func (v Value) Bool() bool {
	for _, b := range v.Raw {
		if b != 0 {
			return true
		}
	}
	return false
}

// Date interprets the value as day, month, year.
func (v Value) Date() (time.Time, error) {
	if len(v.Raw) != 3 {
		return time.Time{}, &SizeError{Type: v.Type, Got: len(v.Raw), Want: 3}
	}
	day, month, year := int(v.Raw[0]), time.Month(v.Raw[1]), yearBase+int(v.Raw[2])
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// Clock interprets the value as hour, minute, second.
func (v Value) Clock() (hour, minute, second int, err error) {
	if len(v.Raw) != 3 {
		return 0, 0, 0, &SizeError{Type: v.Type, Got: len(v.Raw), Want: 3}
	}
	return int(v.Raw[0]), int(v.Raw[1]), int(v.Raw[2]), nil
}

// String formats the value according to its tag.
func (v Value) String() string {
	info := v.Type.Info()
	withUnit := func(s string) string {
		if info.Unit == "" {
			return s
		}
		return s + " " + info.Unit
	}

	switch info.Kind {
	case KindUnsigned, KindEnum:
		return withUnit(strconv.FormatUint(v.Uint(), 10))
	case KindSigned:
		return withUnit(strconv.FormatInt(v.Int(), 10))
	case KindBool:
		return strconv.FormatBool(v.Bool())
	case KindDate:
		if len(v.Raw) == 3 {
			return fmt.Sprintf("%04d-%02d-%02d", yearBase+int(v.Raw[2]), v.Raw[1], v.Raw[0])
		}
	case KindTime:
		if len(v.Raw) == 3 {
			return fmt.Sprintf("%02d:%02d:%02d", v.Raw[0], v.Raw[1], v.Raw[2])
		}
	case KindText:
		return strings.TrimRight(string(v.Raw), "\x00")
	}
	return hex.EncodeToString(v.Raw)
}

// Parse encodes a textual value for tag. Integers accept any base prefix
// understood by strconv, dates use YYYY-MM-DD, times use HH:MM:SS and raw
// values are hex.
func Parse(tag TypeTag, text string) (Value, error) {
	info := tag.Info()
	text = strings.TrimSpace(text)

	var raw []byte
	switch info.Kind {
	case KindUnsigned, KindEnum:
		n, err := strconv.ParseUint(text, 0, info.Size*8)
		if err != nil {
			return Value{}, fmt.Errorf("register: parse %s value %q: %w", tag, text, err)
		}
		raw = putUint(n, info.Size)
	case KindSigned:
		n, err := strconv.ParseInt(text, 0, info.Size*8)
		if err != nil {
			return Value{}, fmt.Errorf("register: parse %s value %q: %w", tag, text, err)
		}
		raw = putUint(uint64(n), info.Size)
	case KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, fmt.Errorf("register: parse %s value %q: %w", tag, text, err)
		}
		raw = make([]byte, info.Size)
		if b {
			raw[len(raw)-1] = 1
		}
	case KindDate:
		t, err := time.Parse(time.DateOnly, text)
		if err != nil {
			return Value{}, fmt.Errorf("register: parse %s value %q: %w", tag, text, err)
		}
		if t.Year() < yearBase || t.Year() > yearBase+0xFF {
			return Value{}, fmt.Errorf("register: year %d out of range", t.Year())
		}
		raw = []byte{byte(t.Day()), byte(t.Month()), byte(t.Year() - yearBase)}
	case KindTime:
		t, err := time.Parse(time.TimeOnly, text)
		if err != nil {
			return Value{}, fmt.Errorf("register: parse %s value %q: %w", tag, text, err)
		}
		raw = []byte{byte(t.Hour()), byte(t.Minute()), byte(t.Second())}
	case KindText:
		raw = []byte(text)
	default:
		b, err := hex.DecodeString(strings.ReplaceAll(text, " ", ""))
		if err != nil {
			return Value{}, fmt.Errorf("register: parse %s value %q: %w", tag, text, err)
		}
		raw = b
	}
	return Decode(tag, raw)
}

func putUint(n uint64, size int) []byte {
	raw := make([]byte, size)
	for i := size - 1; i >= 0; i-- {
		raw[i] = byte(n)
		n >>= 8
	}
	return raw
}
