// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package frame

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkSource hands out one scripted chunk per Read, then reports no data.
type chunkSource struct {
	chunks [][]byte
	err    error
	reads  int
}

func (s *chunkSource) Read(timeout time.Duration) ([]byte, error) {
	s.reads++
	if len(s.chunks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		time.Sleep(timeout)
		return nil, nil
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func mustEncode(t *testing.T, f Frame) []byte {
	t.Helper()
	raw, err := Encode(f)
	require.NoError(t, err)
	return raw
}

func drain(r *Reader) [][]byte {
	var out [][]byte
	for {
		c, ok := r.Pop()
		if !ok {
			return out
		}
		out = append(out, c)
	}
}

func TestReaderChunkingIndependence(t *testing.T) {
	var stream []byte
	stream = append(stream, 0x00, 0xFF, EOT) // noise ending in an orphan EOT
	stream = append(stream, mustEncode(t, Frame{Destination: 0x42, Source: 0x11, Command: 0x04, Payload: []byte{0x0F, 0x06}})...)
	stream = append(stream, 0x33, 0x44) // noise before the next SOT
	stream = append(stream, mustEncode(t, Frame{Destination: 0x11, Source: 0x42, Command: 0x08, Payload: []byte{0x0F, 0x0D, 0x0A}})...)
	stream = append(stream, mustEncode(t, Frame{Destination: 0x11, Source: 0x42, Command: 0x01})...)

	whole := NewReader(nil, DefaultSentinels())
	whole.Feed(stream)
	want := drain(whole)
	require.Len(t, want, 3)

	for _, size := range []int{1, 2, 3, 5, 7, 64} {
		r := NewReader(nil, DefaultSentinels())
		for i := 0; i < len(stream); i += size {
			end := i + size
			if end > len(stream) {
				end = len(stream)
			}
			r.Feed(stream[i:end])
		}
		assert.Equal(t, want, drain(r), "chunk size %d", size)
		assert.Zero(t, r.Buffered(), "chunk size %d", size)
	}

	for _, c := range want {
		_, err := Decode(c)
		assert.NoError(t, err)
	}
}

func TestReaderOrphanEOT(t *testing.T) {
	r := NewReader(nil, DefaultSentinels())
	r.Feed([]byte{0x01, 0x02, EOT, 0x03})
	_, ok := r.Pop()
	assert.False(t, ok)
	assert.Equal(t, 1, r.Buffered())
}

func TestReaderUsesLastSOT(t *testing.T) {
	raw := mustEncode(t, Frame{Destination: 0x42, Source: 0x20, Command: 0x04, Payload: []byte{0x0F}})

	// A truncated frame followed by a complete one.
	stream := append([]byte{SOT, 0x42, 0x20}, raw...)
	r := NewReader(nil, DefaultSentinels())
	r.Feed(stream)

	c, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, raw, c)
}

func TestReaderMaxBuffer(t *testing.T) {
	r := NewReader(nil, DefaultSentinels())
	r.MaxBuffer = 8

	r.Feed([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, SOT, 0x42, 0x20})
	assert.Equal(t, 3, r.Buffered())

	r.Feed(make([]byte, 16))
	assert.Zero(t, r.Buffered())
}

func TestReaderNext(t *testing.T) {
	raw := mustEncode(t, Frame{Destination: 0x11, Source: 0x42, Command: 0x08, Payload: []byte{0x0F, 0x01}})
	src := &chunkSource{chunks: [][]byte{raw[:3], raw[3:6], raw[6:]}}
	r := NewReader(src, DefaultSentinels())

	c, err := r.Next(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, raw, c)
	assert.Equal(t, 3, src.reads)
}

func TestReaderNextQueued(t *testing.T) {
	a := mustEncode(t, Frame{Destination: 0x11, Source: 0x42, Command: 0x01})
	b := mustEncode(t, Frame{Destination: 0x11, Source: 0x42, Command: 0x08, Payload: []byte{0x0F}})
	src := &chunkSource{chunks: [][]byte{append(append([]byte(nil), a...), b...)}}
	r := NewReader(src, DefaultSentinels())

	c, err := r.Next(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, a, c)

	c, err = r.Next(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, b, c)
	assert.Equal(t, 1, src.reads)
}

func TestReaderNextTimeoutDiscardsPartial(t *testing.T) {
	src := &chunkSource{chunks: [][]byte{{SOT, 0x42, 0x20, 0x04}}}
	r := NewReader(src, DefaultSentinels())
	r.PollInterval = 5 * time.Millisecond

	_, err := r.Next(context.Background(), 30*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Zero(t, r.Buffered())
}

func TestReaderNextCancel(t *testing.T) {
	r := NewReader(&chunkSource{}, DefaultSentinels())
	r.PollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Next(ctx, 10*time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReaderNextSourceError(t *testing.T) {
	ioErr := errors.New("link down")
	r := NewReader(&chunkSource{err: ioErr}, DefaultSentinels())

	_, err := r.Next(context.Background(), time.Second)
	require.ErrorIs(t, err, ioErr)
}

// timedSource releases each chunk once its offset from the first Read has
// passed.
type timedSource struct {
	start  time.Time
	chunks []timedChunk
}

type timedChunk struct {
	at   time.Duration
	data []byte
}

func (s *timedSource) Read(timeout time.Duration) ([]byte, error) {
	if s.start.IsZero() {
		s.start = time.Now()
	}
	if len(s.chunks) == 0 {
		time.Sleep(timeout)
		return nil, nil
	}
	wait := time.Until(s.start.Add(s.chunks[0].at))
	if wait > timeout {
		time.Sleep(timeout)
		return nil, nil
	}
	time.Sleep(wait)
	c := s.chunks[0].data
	s.chunks = s.chunks[1:]
	return c, nil
}

func TestReaderListenTimesFromFirstByte(t *testing.T) {
	raw := mustEncode(t, Frame{Destination: 0x42, Source: 0x20, Command: 0x04, Payload: []byte{0x0F}})
	src := &timedSource{chunks: []timedChunk{
		{at: 90 * time.Millisecond, data: raw[:3]},
		{at: 115 * time.Millisecond, data: raw[3:]},
	}}
	r := NewReader(src, DefaultSentinels())
	r.PollInterval = 10 * time.Millisecond

	c, err := r.Listen(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, raw, c)
}

func TestReaderListenDiscardsStalePartial(t *testing.T) {
	src := &timedSource{chunks: []timedChunk{
		{at: 20 * time.Millisecond, data: []byte{SOT, 0x42, 0x20}},
	}}
	r := NewReader(src, DefaultSentinels())
	r.PollInterval = 5 * time.Millisecond

	start := time.Now()
	_, err := r.Listen(context.Background(), 30*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Zero(t, r.Buffered())
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestReaderListenIdleUntilCanceled(t *testing.T) {
	r := NewReader(&chunkSource{}, DefaultSentinels())
	r.PollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Listen(ctx, 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCodecReaderFitsLargePayload(t *testing.T) {
	codec, err := NewCodec(Config{MaxPayload: 8192})
	require.NoError(t, err)

	payload := make([]byte, 5000)
	for i := range payload {
		payload[i] = byte(i)
	}
	f := Frame{Destination: 0x42, Source: 0x20, Command: 0x06, Payload: payload}
	raw, err := codec.Encode(f)
	require.NoError(t, err)
	require.Greater(t, len(raw), DefaultMaxBuffer)
	require.LessOrEqual(t, len(raw), codec.MaxWireSize())

	r := codec.NewReader(nil)
	for i := range raw {
		r.Feed(raw[i : i+1])
	}
	c, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, raw, c)

	got, err := codec.Decode(c)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Payload)
}
