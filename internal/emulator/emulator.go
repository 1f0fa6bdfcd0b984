// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package emulator implements a LAC1550 node on top of a register file, for
// tests and bench work without hardware.
package emulator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/caden602/NIST-LAC1550/internal/emulator/model"
	"github.com/caden602/NIST-LAC1550/internal/emulator/persistence"
	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/caden602/NIST-LAC1550/protocol/register"
	"github.com/caden602/NIST-LAC1550/transport"
)

// Device answers READ and WRITE requests addressed to it. Frames for other
// nodes are ignored.
type Device struct {
	Address  byte
	Commands frame.Commands

	table *register.Table
	regs  *model.RegisterFile

	mu      sync.Mutex // serializes storage writes
	storage persistence.Storage
}

// NewDevice creates a device on top of regs. With a non-empty table only the
// registers it lists exist and values are checked against their type tags.
func NewDevice(address byte, regs *model.RegisterFile, storage persistence.Storage, table *register.Table) *Device {
	if storage == nil {
		storage = persistence.NewMemoryStorage()
	}
	return &Device{
		Address:  address,
		Commands: frame.DefaultCommands(),
		table:    table,
		regs:     regs,
		storage:  storage,
	}
}

// Open creates a device with the storage selected by cfg.
func Open(address byte, cfg config.PersistenceConfig, table *register.Table) *Device {
	storage := persistence.New(cfg)

	m, err := storage.Load()
	if err != nil {
		slog.Error("Failed to load persistence data, starting with fresh registers", "err", err)
		slog.Warn("Falling back to MemoryStorage")
		storage = persistence.NewMemoryStorage()
		m, _ = storage.Load()
	}
	return NewDevice(address, m, storage, table)
}

// Set stores a register value directly, bypassing the protocol.
func (d *Device) Set(id byte, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.regs.Write(id, value); err != nil {
		return err
	}
	d.storage.OnWrite(id)
	return nil
}

// Get returns the current value of a register.
func (d *Device) Get(id byte) []byte {
	return d.regs.Read(id)
}

// Close saves and releases the storage.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.storage.Save(d.regs); err != nil {
		slog.Error("Failed to save registers", "err", err)
	}
	return d.storage.Close()
}

// Handle implements transport.RequestHandler.
func (d *Device) Handle(ctx context.Context, req frame.Frame) (frame.Frame, error) {
	if req.Destination != d.Address {
		return frame.Frame{}, transport.ErrNoReply
	}

	switch req.Command {
	case d.Commands.Read:
		return d.handleRead(req), nil
	case d.Commands.Write:
		return d.handleWrite(req), nil
	default:
		return d.nack(req, 0, frame.NackUnsupported), nil
	}
}

func (d *Device) handleRead(req frame.Frame) frame.Frame {
	if len(req.Payload) != 1 {
		return d.nack(req, 0, frame.NackBadValue)
	}
	id := req.Payload[0]

	tag, ok := d.lookup(id)
	if !ok {
		return d.nack(req, id, frame.NackUnknownRegister)
	}

	value := d.regs.Read(id)
	if size := tag.Info().Size; size > 0 && len(value) != size {
		value = make([]byte, size)
	}

	return d.reply(req, d.Commands.ReadReply, append([]byte{id}, value...))
}

func (d *Device) handleWrite(req frame.Frame) frame.Frame {
	if len(req.Payload) < 1 {
		return d.nack(req, 0, frame.NackBadValue)
	}
	id, value := req.Payload[0], req.Payload[1:]

	tag, ok := d.lookup(id)
	if !ok {
		return d.nack(req, id, frame.NackUnknownRegister)
	}
	if _, err := register.Decode(tag, value); err != nil {
		return d.nack(req, id, frame.NackBadValue)
	}
	if err := d.Set(id, value); err != nil {
		return d.nack(req, id, frame.NackBadValue)
	}

	slog.Debug("emulator register written", "register", fmt.Sprintf("%#02x", id), "value", register.Value{Type: tag, Raw: value})
	return d.reply(req, d.Commands.Ack, []byte{id})
}

// lookup returns the type tag of id. Without a table every register exists
// and holds raw bytes.
func (d *Device) lookup(id byte) (register.TypeTag, bool) {
	if d.table.Len() == 0 {
		return register.TypeNone, true
	}
	r, ok := d.table.Lookup(id)
	return r.Type, ok
}

func (d *Device) reply(req frame.Frame, cmd byte, payload []byte) frame.Frame {
	return frame.Frame{
		Destination: req.Source,
		Source:      d.Address,
		Command:     cmd,
		Payload:     payload,
	}
}

func (d *Device) nack(req frame.Frame, id, code byte) frame.Frame {
	slog.Debug("emulator rejected request", "command", req.Command, "register", id, "code", code)
	return d.reply(req, frame.CommandNack, []byte{req.Command, id, code})
}
