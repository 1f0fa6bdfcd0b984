// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/caden602/NIST-LAC1550/transport"
)

// Server listens on a TCP port and serves each connection as a framed
// request stream.
type Server struct {
	Address string
	Codec   *frame.Codec

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new TCP Server.
func NewServer(address string, codec *frame.Codec) *Server {
	return &Server{
		Address: address,
		Codec:   codec,
	}
}

// Start starts the TCP server.
func (s *Server) Start(ctx context.Context, handler transport.RequestHandler) error {
	listener, err := net.Listen("tcp", s.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Address, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	slog.Info("TCP server listening", "addr", listener.Addr())

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("Failed to accept connection", "err", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn, handler)
		}()
	}
}

// Addr returns the listening address once Start has bound it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close closes the server listener.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn, handler transport.RequestHandler) {
	defer conn.Close()
	slog.Info("New TCP client connected", "addr", conn.RemoteAddr())

	stream := &transport.Stream{
		Transport: &connTransport{conn: conn},
		Codec:     s.Codec,
		Handler:   handler,
		Name:      conn.RemoteAddr().String(),
	}
	if err := stream.Serve(ctx); err != nil && !errors.Is(err, io.EOF) {
		slog.Error("Connection closed", "addr", conn.RemoteAddr(), "err", err)
		return
	}
	slog.Info("TCP client disconnected", "addr", conn.RemoteAddr())
}

// connTransport adapts an accepted connection to transport.Transport.
type connTransport struct {
	conn net.Conn
	buf  [readChunk]byte
}

func (c *connTransport) Write(b []byte) error {
	_, err := c.conn.Write(b)
	return err
}

func (c *connTransport) Read(timeout time.Duration) ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	n, err := c.conn.Read(c.buf[:])
	if n > 0 {
		return append([]byte(nil), c.buf[:n]...), nil
	}
	if err == nil || isTimeout(err) {
		return nil, nil
	}
	return nil, err
}
