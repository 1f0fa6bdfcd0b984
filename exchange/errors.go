// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package exchange

import (
	"errors"
	"fmt"
)

// ErrCanceled is wrapped together with ctx.Err() when the caller abandons an
// exchange.
var ErrCanceled = errors.New("exchange: canceled")

// IOError reports a transport failure. It ends the exchange without retry.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("exchange: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NackError reports a request the device explicitly rejected.
type NackError struct {
	Operation byte
	Register  byte
	Code      byte
}

func (e *NackError) Error() string {
	return fmt.Sprintf("exchange: device rejected operation %#02x on register %#02x with code %#02x", e.Operation, e.Register, e.Code)
}

// newNackError reads {operation, register, code} from a NACK payload. Missing
// fields are zero.
func newNackError(payload []byte) *NackError {
	var b [3]byte
	copy(b[:], payload)
	return &NackError{Operation: b[0], Register: b[1], Code: b[2]}
}

// RetriesExhaustedError is returned when no attempt produced a matching
// response. Last is the error that ended the final attempt.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("exchange: no valid response after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}
