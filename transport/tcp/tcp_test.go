// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/caden602/NIST-LAC1550/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, handler transport.RequestHandler) (*Server, context.CancelFunc) {
	t.Helper()
	s := NewServer("127.0.0.1:0", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Start(ctx, handler); err != nil {
			t.Logf("Server stopped: %v", err)
		}
	}()
	require.Eventually(t, func() bool { return s.Addr() != nil }, time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, cancel
}

func readFrame(t *testing.T, c *Client) frame.Frame {
	t.Helper()
	r := frame.NewReader(c, frame.DefaultSentinels())
	raw, err := r.Next(context.Background(), time.Second)
	require.NoError(t, err)
	f, err := frame.Decode(raw)
	require.NoError(t, err)
	return f
}

func TestServerAndClient(t *testing.T) {
	s, _ := startServer(t, func(ctx context.Context, req frame.Frame) (frame.Frame, error) {
		if req.Destination != 0x42 {
			return frame.Frame{}, transport.ErrNoReply
		}
		return frame.Frame{Destination: req.Source, Source: req.Destination, Command: 0x01}, nil
	})

	c := NewClient(config.TcpConfig{Address: s.Addr().String(), Timeout: time.Second})
	defer c.Close()

	// Not ours: no reply expected.
	raw, _ := frame.Encode(frame.Frame{Destination: 0x43, Source: 0x11, Command: 0x06, Payload: []byte{0x20, 0x00}})
	require.NoError(t, c.Write(raw))
	b, err := c.Read(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, b)

	raw, _ = frame.Encode(frame.Frame{Destination: 0x42, Source: 0x11, Command: 0x06, Payload: []byte{0x20, 0x00}})
	// Deliver the request in two segments.
	require.NoError(t, c.Write(raw[:4]))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, c.Write(raw[4:]))

	resp := readFrame(t, c)
	assert.Equal(t, frame.Frame{Destination: 0x11, Source: 0x42, Command: 0x01}, resp)
}

func TestClientReadTimeout(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, _ := listener.Accept()
		if conn != nil {
			// Never answer
			time.Sleep(500 * time.Millisecond)
			conn.Close()
		}
	}()

	c := NewClient(config.TcpConfig{Address: listener.Addr().String()})
	defer c.Close()

	start := time.Now()
	b, err := c.Read(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestClientReconnects(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan net.Conn, 2)
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()

	c := NewClient(config.TcpConfig{Address: listener.Addr().String()})
	defer c.Close()
	require.NoError(t, c.Connect(context.Background()))

	first := <-accepted
	first.Close()

	// The peer closed: the read fails and drops the connection.
	_, err = c.Read(time.Second)
	require.Error(t, err)

	require.NoError(t, c.Write([]byte{0x0D}))
	select {
	case conn := <-accepted:
		conn.Close()
	case <-time.After(time.Second):
		t.Fatal("client did not redial")
	}
}

func TestClientDialFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	c := NewClient(config.TcpConfig{Address: addr, Timeout: 200 * time.Millisecond})
	assert.Error(t, c.Write([]byte{0x0D}))
}

func TestServerLifeCycle(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx, func(ctx context.Context, req frame.Frame) (frame.Frame, error) {
			return req, nil
		})
	}()
	require.Eventually(t, func() bool { return s.Addr() != nil }, time.Second, 5*time.Millisecond)

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
