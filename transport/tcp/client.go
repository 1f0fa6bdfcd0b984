// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/caden602/NIST-LAC1550/internal/config"
)

const (
	tcpTimeout = 5 * time.Second

	readChunk = 512
)

// Client carries wire frames over a TCP connection, e.g. to a serial device
// server in front of the laser controller. It implements transport.Transport.
type Client struct {
	Address string
	Timeout time.Duration // Dial and write timeout

	mu   sync.Mutex
	conn net.Conn
}

// NewClient allocates and initializes a TCP Client.
func NewClient(cfg config.TcpConfig) *Client {
	c := &Client{
		Address: cfg.Address,
		Timeout: cfg.Timeout,
	}
	if c.Timeout <= 0 {
		c.Timeout = tcpTimeout
	}
	return c
}

// Write sends b, dialing first if needed.
func (mb *Client) Write(b []byte) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if err := mb.connect(context.Background()); err != nil {
		return err
	}
	if err := mb.conn.SetWriteDeadline(time.Now().Add(mb.Timeout)); err != nil {
		mb.close()
		return err
	}
	slog.Debug("tcp write", "addr", mb.Address, "data", hex.EncodeToString(b))
	if _, err := mb.conn.Write(b); err != nil {
		mb.close() // Close connection on write failure to force reconnect next time
		return fmt.Errorf("failed to write to connection: %w", err)
	}
	return nil
}

// Read returns whatever arrives within timeout. An expired deadline yields no
// bytes and no error.
func (mb *Client) Read(timeout time.Duration) ([]byte, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if err := mb.connect(context.Background()); err != nil {
		return nil, err
	}
	if err := mb.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		mb.close()
		return nil, err
	}

	buf := make([]byte, readChunk)
	n, err := mb.conn.Read(buf)
	if n > 0 {
		slog.Debug("tcp read", "addr", mb.Address, "data", hex.EncodeToString(buf[:n]))
		return buf[:n], nil
	}
	if err == nil || isTimeout(err) {
		return nil, nil
	}
	mb.close() // Close connection on read failure
	return nil, fmt.Errorf("failed to read from connection: %w", err)
}

// Connect implements Connector interface.
func (mb *Client) Connect(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.connect(ctx)
}

// Close implements Connector interface.
func (mb *Client) Close() error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.close()
	return nil
}

// connect ensures there is an active connection. Caller must hold the mutex.
func (mb *Client) connect(ctx context.Context) error {
	if mb.conn != nil {
		return nil
	}
	d := net.Dialer{Timeout: mb.Timeout}
	conn, err := d.DialContext(ctx, "tcp", mb.Address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", mb.Address, err)
	}
	mb.conn = conn
	return nil
}

// close closes the connection and resets the state. Caller must hold the mutex.
func (mb *Client) close() {
	if mb.conn != nil {
		mb.conn.Close()
		mb.conn = nil
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
