// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package register

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Register is one entry of a register table.
type Register struct {
	ID   byte    `toml:"id"`
	Name string  `toml:"name"`
	Type TypeTag `toml:"type"`
	Desc string  `toml:"description,omitempty"`
}

func (r Register) String() string {
	if r.Name == "" {
		return fmt.Sprintf("%#02x", r.ID)
	}
	return fmt.Sprintf("%s(%#02x)", r.Name, r.ID)
}

// Table maps register ids to their type tags. It is immutable once built.
type Table struct {
	regs   []Register
	byID   map[byte]int
	byName map[string]int
}

// NewTable builds a table from regs, rejecting duplicate ids or names.
func NewTable(regs ...Register) (*Table, error) {
	t := &Table{
		regs:   make([]Register, 0, len(regs)),
		byID:   make(map[byte]int, len(regs)),
		byName: make(map[string]int, len(regs)),
	}
	for _, r := range regs {
		if _, ok := t.byID[r.ID]; ok {
			return nil, fmt.Errorf("register: duplicate id %#02x", r.ID)
		}
		key := strings.ToLower(r.Name)
		if key != "" {
			if _, ok := t.byName[key]; ok {
				return nil, fmt.Errorf("register: duplicate name %q", r.Name)
			}
			t.byName[key] = len(t.regs)
		}
		t.byID[r.ID] = len(t.regs)
		t.regs = append(t.regs, r)
	}
	return t, nil
}

// Len returns the number of registers.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.regs)
}

// Registers returns the registers in table order.
func (t *Table) Registers() []Register {
	if t == nil {
		return nil
	}
	return append([]Register(nil), t.regs...)
}

// Sorted returns the registers ordered by id.
func (t *Table) Sorted() []Register {
	regs := t.Registers()
	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })
	return regs
}

// Lookup returns the register with the given id.
func (t *Table) Lookup(id byte) (Register, bool) {
	if t == nil {
		return Register{}, false
	}
	i, ok := t.byID[id]
	if !ok {
		return Register{}, false
	}
	return t.regs[i], true
}

// Resolve finds a register by name (case-insensitive) or numeric id.
func (t *Table) Resolve(s string) (Register, error) {
	if t != nil {
		if i, ok := t.byName[strings.ToLower(strings.TrimSpace(s))]; ok {
			return t.regs[i], nil
		}
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return Register{}, fmt.Errorf("%w: %q", ErrUnknownRegister, s)
	}
	if r, ok := t.Lookup(byte(n)); ok {
		return r, nil
	}
	return Register{}, fmt.Errorf("%w: %#02x", ErrUnknownRegister, n)
}

type tableFile struct {
	Register []Register `toml:"register"`
}

// LoadTable reads a register table from a TOML file of [[register]] entries.
func LoadTable(path string) (*Table, error) {
	var f tableFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("register: load %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("register: load %s: unknown keys %v", path, undecoded)
	}
	return NewTable(f.Register...)
}

// ParseTable reads a register table from TOML text.
func ParseTable(data string) (*Table, error) {
	var f tableFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("register: parse table: %w", err)
	}
	return NewTable(f.Register...)
}

// Encode writes the table as TOML in table order.
func (t *Table) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(tableFile{Register: t.Registers()})
}
