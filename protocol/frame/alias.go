// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package frame

import "fmt"

// Alias maps a canonical node address to the two-byte sequence a peer uses
// for it in the header.
type Alias struct {
	Canonical byte
	Wire      [2]byte
}

// AliasTable folds and expands header addresses. A nil table is the identity.
type AliasTable struct {
	byCanonical map[byte][2]byte
	byWire      map[[2]byte]byte
}

// NewAliasTable builds a table, rejecting ambiguous entries.
func NewAliasTable(aliases ...Alias) (*AliasTable, error) {
	t := &AliasTable{
		byCanonical: make(map[byte][2]byte, len(aliases)),
		byWire:      make(map[[2]byte]byte, len(aliases)),
	}
	for _, a := range aliases {
		if _, ok := t.byCanonical[a.Canonical]; ok {
			return nil, fmt.Errorf("frame: duplicate alias for address %#02x", a.Canonical)
		}
		if c, ok := t.byWire[a.Wire]; ok {
			return nil, fmt.Errorf("frame: alias % X already maps to %#02x", a.Wire[:], c)
		}
		t.byCanonical[a.Canonical] = a.Wire
		t.byWire[a.Wire] = a.Canonical
	}
	return t, nil
}

// Len returns the number of aliases.
func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byCanonical)
}

// expand appends the header form of addr to dst.
func (t *AliasTable) expand(dst []byte, addr byte) []byte {
	if t != nil {
		if w, ok := t.byCanonical[addr]; ok {
			return append(dst, w[0], w[1])
		}
	}
	return append(dst, addr)
}

// fold reads one address from the start of b and reports how many bytes it
// occupied. b must not be empty.
func (t *AliasTable) fold(b []byte) (addr byte, n int) {
	if t != nil && len(b) >= 2 {
		if c, ok := t.byWire[[2]byte{b[0], b[1]}]; ok {
			return c, 2
		}
	}
	return b[0], 1
}
