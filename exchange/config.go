// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package exchange

import (
	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/caden602/NIST-LAC1550/protocol/register"
)

// NewCodec builds the frame codec described by the protocol section.
func NewCodec(p config.ProtocolConfig) (*frame.Codec, error) {
	aliases := make([]frame.Alias, 0, len(p.Aliases))
	for _, a := range p.Aliases {
		addr, wire, err := a.Bytes()
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, frame.Alias{Canonical: addr, Wire: wire})
	}
	return frame.NewCodec(frame.Config{Aliases: aliases, MaxPayload: p.MaxPayload})
}

// Commands returns the command codes of the protocol section.
func Commands(p config.ProtocolConfig) frame.Commands {
	return frame.Commands{
		Ack:       byte(p.Commands.Ack),
		Read:      byte(p.Commands.Read),
		ReadReply: byte(p.Commands.ReadReply),
		Write:     byte(p.Commands.Write),
	}
}

// NewConfig builds an engine Config from the protocol section.
func NewConfig(p config.ProtocolConfig, table *register.Table) (Config, error) {
	codec, err := NewCodec(p)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Address:      byte(p.Address),
		Timeout:      p.Timeout,
		MaxAttempts:  p.MaxAttempts,
		PollInterval: p.PollInterval,
		Commands:     Commands(p),
		Codec:        codec,
		Table:        table,
	}, nil
}
