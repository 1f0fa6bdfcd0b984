// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caden602/NIST-LAC1550/protocol/frame"
)

// chanTransport delivers bytes written to in as reads and collects writes.
type chanTransport struct {
	in  chan []byte
	out chan []byte
}

func newChanTransport() *chanTransport {
	return &chanTransport{in: make(chan []byte, 8), out: make(chan []byte, 8)}
}

func (c *chanTransport) Read(timeout time.Duration) ([]byte, error) {
	select {
	case b := <-c.in:
		return b, nil
	case <-time.After(timeout):
		return nil, nil
	}
}

func (c *chanTransport) Write(p []byte) error {
	c.out <- append([]byte(nil), p...)
	return nil
}

func ackHandler(calls *atomic.Int32) RequestHandler {
	return func(_ context.Context, req frame.Frame) (frame.Frame, error) {
		calls.Add(1)
		return frame.Frame{
			Destination: req.Source,
			Source:      req.Destination,
			Command:     frame.DefaultCommandAck,
			Payload:     req.Payload[:1],
		}, nil
	}
}

func serve(t *testing.T, s *Stream) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Error("Serve did not return after cancel")
		}
	})
}

func encodeRequest(t *testing.T) ([]byte, []byte) {
	t.Helper()
	codec := frame.DefaultCodec()
	req, err := codec.Encode(frame.Frame{Destination: 0x42, Source: 0x20, Command: frame.DefaultCommandWrite, Payload: []byte{0x0F, 0x01}})
	require.NoError(t, err)
	resp, err := codec.Encode(frame.Frame{Destination: 0x20, Source: 0x42, Command: frame.DefaultCommandAck, Payload: []byte{0x0F}})
	require.NoError(t, err)
	return req, resp
}

func awaitReply(t *testing.T, tr *chanTransport, within time.Duration) []byte {
	t.Helper()
	select {
	case b := <-tr.out:
		return b
	case <-time.After(within):
		t.Fatal("no reply")
		return nil
	}
}

func TestServeRequestSpanningIdlePolls(t *testing.T) {
	tr := newChanTransport()
	var calls atomic.Int32
	serve(t, &Stream{Transport: tr, Handler: ackHandler(&calls), FrameTimeout: 100 * time.Millisecond})

	req, want := encodeRequest(t)
	time.Sleep(90 * time.Millisecond)
	tr.in <- req[:3]
	time.Sleep(25 * time.Millisecond)
	tr.in <- req[3:]

	assert.Equal(t, want, awaitReply(t, tr, time.Second))
	assert.Equal(t, int32(1), calls.Load())
}

func TestServeDropsStalePartialRequest(t *testing.T) {
	tr := newChanTransport()
	var calls atomic.Int32
	serve(t, &Stream{Transport: tr, Handler: ackHandler(&calls), FrameTimeout: 30 * time.Millisecond})

	req, want := encodeRequest(t)
	tr.in <- req[:3]
	time.Sleep(150 * time.Millisecond)
	// Without its SOT the tail is noise.
	tr.in <- req[3:]

	select {
	case b := <-tr.out:
		t.Fatalf("unexpected reply % X", b)
	case <-time.After(100 * time.Millisecond):
	}

	tr.in <- req
	assert.Equal(t, want, awaitReply(t, tr, time.Second))
	assert.Equal(t, int32(1), calls.Load())
}

func TestServeSkipsCorruptRequest(t *testing.T) {
	tr := newChanTransport()
	var calls atomic.Int32
	serve(t, &Stream{Transport: tr, Handler: ackHandler(&calls)})

	req, want := encodeRequest(t)
	bad := append([]byte(nil), req...)
	bad[len(bad)-2] ^= 0x01
	tr.in <- bad
	tr.in <- req

	assert.Equal(t, want, awaitReply(t, tr, time.Second))
	assert.Equal(t, int32(1), calls.Load())
}

func TestServeNoReply(t *testing.T) {
	tr := newChanTransport()
	var calls atomic.Int32
	handler := func(_ context.Context, _ frame.Frame) (frame.Frame, error) {
		calls.Add(1)
		return frame.Frame{}, ErrNoReply
	}
	serve(t, &Stream{Transport: tr, Handler: handler})

	req, _ := encodeRequest(t)
	tr.in <- req

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	select {
	case b := <-tr.out:
		t.Fatalf("unexpected reply % X", b)
	case <-time.After(50 * time.Millisecond):
	}
}
