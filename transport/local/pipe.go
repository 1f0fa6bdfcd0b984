// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package local

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/caden602/NIST-LAC1550/transport"
)

// ErrClosed is returned by a closed Pipe.
var ErrClosed = errors.New("local: pipe closed")

// Pipe is an in-process transport.Transport wired to a RequestHandler. Bytes
// written are reassembled and decoded as on a real line; encoded replies are
// queued for Read.
type Pipe struct {
	codec   *frame.Codec
	handler transport.RequestHandler

	// Tamper, if set, may rewrite each encoded reply before it is queued,
	// e.g. to corrupt or drop it.
	Tamper func(reply []byte) []byte

	mu     sync.Mutex
	rx     *frame.Reader
	out    []byte
	notify chan struct{}
	closed bool
}

// NewPipe creates a Pipe answering with handler. A nil codec selects the
// default codec.
func NewPipe(codec *frame.Codec, handler transport.RequestHandler) *Pipe {
	if codec == nil {
		codec = frame.DefaultCodec()
	}
	return &Pipe{
		codec:   codec,
		handler: handler,
		rx:      codec.NewReader(nil),
		notify:  make(chan struct{}, 1),
	}
}

// Write delivers b to the handler side.
func (p *Pipe) Write(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	p.rx.Feed(b)
	for {
		raw, ok := p.rx.Pop()
		if !ok {
			return nil
		}
		req, err := p.codec.Decode(raw)
		if err != nil {
			continue
		}
		resp, err := p.handler(context.Background(), req)
		if err != nil {
			continue
		}
		out, err := p.codec.Encode(resp)
		if err != nil {
			continue
		}
		if p.Tamper != nil {
			out = p.Tamper(out)
		}
		p.push(out)
	}
}

// Inject queues raw bytes for Read as if the peer had sent them.
func (p *Pipe) Inject(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.push(b)
}

// push queues b. Caller must hold the mutex.
func (p *Pipe) push(b []byte) {
	if len(b) == 0 || p.closed {
		return
	}
	p.out = append(p.out, b...)
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Read returns queued bytes, waiting at most timeout for some to arrive.
func (p *Pipe) Read(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		p.mu.Lock()
		if len(p.out) > 0 {
			b := p.out
			p.out = nil
			p.mu.Unlock()
			return b, nil
		}
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}

		select {
		case <-p.notify:
		case <-timer.C:
			return nil, nil
		}
	}
}

// Close shuts the pipe. Pending and later operations fail with ErrClosed.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.notify)
	}
	return nil
}
