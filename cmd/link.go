// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caden602/NIST-LAC1550/exchange"
	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/caden602/NIST-LAC1550/protocol/register"
	"github.com/caden602/NIST-LAC1550/transport"
	"github.com/caden602/NIST-LAC1550/transport/local"
	"github.com/caden602/NIST-LAC1550/transport/serial"
	"github.com/caden602/NIST-LAC1550/transport/tcp"
)

// newLink creates the device link described by tc.
func newLink(tc config.TransportConfig, codec *frame.Codec, cmds frame.Commands, table *register.Table) (transport.Link, error) {
	switch tc.Type {
	case "serial":
		return serial.NewPort(tc.Serial), nil
	case "tcp":
		return tcp.NewClient(tc.Tcp), nil
	case "local":
		c := local.NewClient(tc.Local, codec, table)
		c.Device.Commands = cmds
		return c, nil
	default:
		return nil, fmt.Errorf("unknown transport type %q", tc.Type)
	}
}

// newUpstream creates a server accepting hosts as described by uc.
func newUpstream(uc config.UpstreamConfig, codec *frame.Codec) (transport.Upstream, error) {
	switch uc.Type {
	case "tcp":
		return tcp.NewServer(uc.Tcp.Address, codec), nil
	case "serial":
		return serial.NewServer(uc.Serial, codec), nil
	default:
		return nil, fmt.Errorf("unknown upstream type %q", uc.Type)
	}
}

// connect opens the configured link and returns an engine on top of it. The
// caller closes the link.
func connect(ctx context.Context) (*exchange.Engine, transport.Link, error) {
	ecfg, err := exchange.NewConfig(cfg.Protocol, table)
	if err != nil {
		return nil, nil, err
	}

	link, err := newLink(cfg.Transport, ecfg.Codec, ecfg.Commands, table)
	if err != nil {
		return nil, nil, err
	}
	if err := link.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect %s link: %w", cfg.Transport.Type, err)
	}
	slog.Debug("Link connected", "type", cfg.Transport.Type)

	return exchange.New(link, ecfg), link, nil
}
