// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serial

import (
	"context"
	"log/slog"
	"sync"

	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/caden602/NIST-LAC1550/transport"
)

// Server implements an Upstream on a serial line. It answers requests from
// an external host, acting as the device end of the link.
type Server struct {
	Config config.SerialConfig
	Codec  *frame.Codec

	port *Port

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewServer creates a new serial Server.
func NewServer(cfg config.SerialConfig, codec *frame.Codec) *Server {
	port := NewPort(cfg)
	// The server owns the line for its whole life.
	port.IdleTimeout = -1
	return &Server{
		Config: cfg,
		Codec:  codec,
		port:   port,
	}
}

// Start opens the serial port and serves requests until ctx is done.
func (s *Server) Start(ctx context.Context, handler transport.RequestHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.port.Connect(ctx); err != nil {
		return err
	}
	defer s.port.Close()
	slog.Info("Serial server listening", "device", s.Config.Device)

	stream := &transport.Stream{
		Transport: s.port,
		Codec:     s.Codec,
		Handler:   handler,
		Name:      s.Config.Device,
	}
	return stream.Serve(ctx)
}

// Close stops a running server. The port is closed once Start returns.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}
