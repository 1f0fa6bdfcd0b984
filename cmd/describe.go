// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"errors"
	"fmt"

	"github.com/caden602/NIST-LAC1550/exchange"
	"github.com/caden602/NIST-LAC1550/protocol/frame"
)

var nackReasons = map[byte]string{
	frame.NackUnsupported:     "unsupported command",
	frame.NackUnknownRegister: "unknown register",
	frame.NackBadValue:        "bad value",
}

// describe renders exchange failures for humans.
func describe(err error) string {
	var (
		nack *exchange.NackError
		re   *exchange.RetriesExhaustedError
		ioe  *exchange.IOError
	)
	switch {
	case errors.As(err, &nack):
		reason, ok := nackReasons[nack.Code]
		if !ok {
			reason = "device error"
		}
		return fmt.Sprintf("NACK: %s (operation %#02x, register %#02x, code %#02x)", reason, nack.Operation, nack.Register, nack.Code)
	case errors.As(err, &re):
		return fmt.Sprintf("no response after %d attempts: %v", re.Attempts, re.Last)
	case errors.As(err, &ioe):
		return fmt.Sprintf("link failure during %s: %v", ioe.Op, ioe.Err)
	case errors.Is(err, exchange.ErrCanceled):
		return "canceled"
	}
	return err.Error()
}
