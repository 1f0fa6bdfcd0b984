// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package frame

import (
	"bytes"
	"context"
	"time"
)

const (
	DefaultPollInterval = 50 * time.Millisecond
	DefaultMaxBuffer    = 4 * (DefaultMaxPayload + MinSize + 4)
)

// Source is the read half of a transport. Read waits at most timeout and may
// return no bytes and no error when nothing arrived.
type Source interface {
	Read(timeout time.Duration) ([]byte, error)
}

// Reader reassembles candidate wire frames from a byte stream that has no
// message boundaries of its own. A candidate runs from the last SOT before an
// EOT through that EOT; bytes up to an EOT with no preceding SOT are noise.
//
// Reader is not safe for concurrent use.
type Reader struct {
	src Source
	sot byte
	eot byte

	// PollInterval bounds a single Source.Read so cancellation is noticed.
	PollInterval time.Duration
	// MaxBuffer bounds the bytes kept while waiting for an EOT.
	MaxBuffer int

	buf     []byte
	since   time.Time // arrival of the first byte in buf
	pending [][]byte
}

// NewReader allocates a Reader over src using the delimiters of s.
func NewReader(src Source, s Sentinels) *Reader {
	return &Reader{
		src:          src,
		sot:          s.SOT,
		eot:          s.EOT,
		PollInterval: DefaultPollInterval,
		MaxBuffer:    DefaultMaxBuffer,
	}
}

// Feed appends a chunk of stream bytes and extracts completed candidates.
func (r *Reader) Feed(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	fresh := len(r.buf) == 0
	r.buf = append(r.buf, chunk...)
	for {
		end := bytes.IndexByte(r.buf, r.eot)
		if end < 0 {
			break
		}
		if start := bytes.LastIndexByte(r.buf[:end], r.sot); start >= 0 {
			r.pending = append(r.pending, append([]byte(nil), r.buf[start:end+1]...))
		}
		r.buf = r.buf[end+1:]
		fresh = true
	}
	if len(r.buf) == 0 {
		r.buf = r.buf[:0:0]
		return
	}
	if r.MaxBuffer > 0 && len(r.buf) > r.MaxBuffer {
		// Keep only the newest partial frame.
		if start := bytes.LastIndexByte(r.buf, r.sot); start > 0 {
			r.buf = append([]byte(nil), r.buf[start:]...)
			fresh = true
		}
		if len(r.buf) > r.MaxBuffer {
			r.buf = nil
			return
		}
	}
	if fresh {
		r.since = time.Now()
	}
}

// Pop returns the oldest extracted candidate, if any.
func (r *Reader) Pop() ([]byte, bool) {
	if len(r.pending) == 0 {
		return nil, false
	}
	c := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]
	return c, true
}

// Buffered returns the number of bytes held that are not yet part of a
// complete candidate.
func (r *Reader) Buffered() int {
	return len(r.buf)
}

// Reset discards the partial buffer and every pending candidate.
func (r *Reader) Reset() {
	r.buf = nil
	r.pending = nil
}

// Listen returns the next candidate frame from a stream that may stay idle
// for any length of time. An idle stream is polled until ctx is done. The
// timeout runs from the first byte of a partial candidate; when it expires the
// partial bytes are discarded and ErrTimeout is returned.
func (r *Reader) Listen(ctx context.Context, timeout time.Duration) ([]byte, error) {
	for {
		if c, ok := r.Pop(); ok {
			return c, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wait := r.PollInterval
		if wait <= 0 {
			wait = DefaultPollInterval
		}
		if len(r.buf) > 0 {
			remaining := timeout - time.Since(r.since)
			if remaining <= 0 {
				r.buf = nil
				return nil, ErrTimeout
			}
			wait = min(wait, remaining)
		}

		chunk, err := r.src.Read(wait)
		r.Feed(chunk)
		if err != nil {
			return nil, err
		}
	}
}

// Next returns the next candidate frame. If none completes within timeout the
// partial buffer is discarded and ErrTimeout is returned. Errors from the
// Source are returned as is.
func (r *Reader) Next(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if c, ok := r.Pop(); ok {
		return c, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			r.buf = nil
			return nil, ErrTimeout
		}
		if r.PollInterval > 0 && remaining > r.PollInterval {
			remaining = r.PollInterval
		}

		chunk, err := r.src.Read(remaining)
		if len(chunk) > 0 {
			r.Feed(chunk)
		}
		if err != nil {
			return nil, err
		}
		if c, ok := r.Pop(); ok {
			return c, nil
		}
	}
}
