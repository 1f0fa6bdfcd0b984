// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/caden602/NIST-LAC1550/protocol/register"
)

// Resolve finds a register by name or id. Without a register table any id is
// accepted as a raw register.
func (e *Engine) Resolve(s string) (register.Register, error) {
	if e.cfg.Table.Len() > 0 {
		return e.cfg.Table.Resolve(s)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return register.Register{}, fmt.Errorf("%w: %q", register.ErrUnknownRegister, s)
	}
	return register.Register{ID: byte(n), Name: fmt.Sprintf("%#02x", n), Type: register.TypeNone}, nil
}

func (e *Engine) lookup(id byte) (register.Register, error) {
	if e.cfg.Table.Len() == 0 {
		return register.Register{ID: id, Type: register.TypeNone}, nil
	}
	r, ok := e.cfg.Table.Lookup(id)
	if !ok {
		return register.Register{}, fmt.Errorf("%w: %#02x", register.ErrUnknownRegister, id)
	}
	return r, nil
}

// Read reads the raw value of register id on dst.
func (e *Engine) Read(ctx context.Context, dst, id byte) ([]byte, error) {
	res, err := e.Do(ctx, Request{
		Frame: frame.Frame{
			Destination: dst,
			Source:      e.cfg.Address,
			Command:     e.cfg.Commands.Read,
			Payload:     []byte{id},
		},
		Expect: []byte{e.cfg.Commands.ReadReply},
		Match: func(f frame.Frame) bool {
			return len(f.Payload) >= 1 && f.Payload[0] == id
		},
	})
	if err != nil {
		return nil, err
	}
	return res.Frame.Payload[1:], nil
}

// ReadRegister reads register id on dst and decodes it by its type tag.
func (e *Engine) ReadRegister(ctx context.Context, dst, id byte) (register.Value, error) {
	r, err := e.lookup(id)
	if err != nil {
		return register.Value{}, err
	}
	raw, err := e.Read(ctx, dst, id)
	if err != nil {
		return register.Value{}, err
	}
	v, err := register.Decode(r.Type, raw)
	if err != nil {
		return register.Value{}, fmt.Errorf("exchange: register %s: %w", r, err)
	}
	return v, nil
}

// Write writes value to register id on dst and waits for the ACK.
func (e *Engine) Write(ctx context.Context, dst, id byte, value []byte) error {
	payload := make([]byte, 0, 1+len(value))
	payload = append(payload, id)
	payload = append(payload, value...)

	_, err := e.Do(ctx, Request{
		Frame: frame.Frame{
			Destination: dst,
			Source:      e.cfg.Address,
			Command:     e.cfg.Commands.Write,
			Payload:     payload,
		},
		Expect: []byte{e.cfg.Commands.Ack},
		Match: func(f frame.Frame) bool {
			return len(f.Payload) == 0 || f.Payload[0] == id
		},
	})
	return err
}

// WriteRegister checks v against the type tag of register id and writes it.
func (e *Engine) WriteRegister(ctx context.Context, dst, id byte, v register.Value) error {
	r, err := e.lookup(id)
	if err != nil {
		return err
	}
	if _, err := register.Decode(r.Type, v.Raw); err != nil {
		return fmt.Errorf("exchange: register %s: %w", r, err)
	}
	return e.Write(ctx, dst, id, v.Raw)
}
