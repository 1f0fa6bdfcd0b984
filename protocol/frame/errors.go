// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package frame

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned by Reader when no terminator arrives in time.
var ErrTimeout = errors.New("frame: no terminator before deadline")

// FramingError reports missing or misplaced delimiters and malformed escapes.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return "frame: framing error: " + e.Reason
}

// ChecksumError reports a checksum that does not verify.
type ChecksumError struct {
	Received uint16
	Computed uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("frame: checksum %#04x does not match computed %#04x", e.Received, e.Computed)
}

// LengthError reports a frame shorter than the fixed header or a payload
// larger than the configured maximum.
type LengthError struct {
	Length int
	Min    int
	Max    int
}

func (e *LengthError) Error() string {
	if e.Max > 0 {
		return fmt.Sprintf("frame: length %d exceeds maximum %d", e.Length, e.Max)
	}
	return fmt.Sprintf("frame: length %d does not meet minimum %d", e.Length, e.Min)
}

// IsDecodeError reports whether err is a framing, checksum or length error,
// i.e. a corrupt candidate rather than a transport failure.
func IsDecodeError(err error) bool {
	var (
		fe *FramingError
		ce *ChecksumError
		le *LengthError
	)
	return errors.As(err, &fe) || errors.As(err, &ce) || errors.As(err, &le)
}
