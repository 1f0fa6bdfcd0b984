// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package register

import (
	"errors"
	"fmt"
)

// ErrUnknownRegister is returned for register ids or names not in the table.
var ErrUnknownRegister = errors.New("register: unknown register")

// SizeError reports a value whose length does not match its type tag.
type SizeError struct {
	Type TypeTag
	Got  int
	Want int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("register: %s value of %d bytes, want %d", e.Type, e.Got, e.Want)
}
