// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package local

import (
	"context"

	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/caden602/NIST-LAC1550/internal/emulator"
	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/caden602/NIST-LAC1550/protocol/register"
)

// Client is a transport to an emulated device living in this process.
type Client struct {
	*Pipe
	Device *emulator.Device
}

// NewClient creates a new Local Client.
func NewClient(cfg config.LocalConfig, codec *frame.Codec, table *register.Table) *Client {
	dev := emulator.Open(byte(cfg.Address), cfg.Persistence, table)
	return &Client{
		Pipe:   NewPipe(codec, dev.Handle),
		Device: dev,
	}
}

// Connect is a no-op for the local device.
func (c *Client) Connect(ctx context.Context) error {
	return nil
}

// Close closes the pipe and the device storage.
func (c *Client) Close() error {
	c.Pipe.Close()
	return c.Device.Close()
}
