// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package exchange runs request/response exchanges with LAC1550 devices over
// a transport: it sends a frame, waits for the correlated reply, retries on
// silence or corruption and reports NACKs as structured errors.
package exchange

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/caden602/NIST-LAC1550/protocol/register"
	"github.com/caden602/NIST-LAC1550/transport"
	"golang.org/x/sync/semaphore"
)

// Default exchange settings
const (
	DefaultTimeout     = config.DefaultTimeout
	DefaultMaxAttempts = config.DefaultMaxAttempts
)

// Config configures an Engine.
type Config struct {
	Address      byte          // our node address, the source of requests
	Timeout      time.Duration // per-attempt response deadline
	MaxAttempts  int           // sends per exchange, including the first
	PollInterval time.Duration // upper bound on a single transport read, zero for the reader default
	Commands     frame.Commands
	Codec        *frame.Codec
	Table        *register.Table
}

// Request is one outbound frame and the replies that complete it.
type Request struct {
	Frame frame.Frame

	// Expect lists the reply commands that complete the exchange. A NACK
	// always does. Empty accepts any command from the addressed device.
	Expect []byte

	// Match, if set, must also accept a reply before it completes the
	// exchange. It is not consulted for NACKs.
	Match func(frame.Frame) bool
}

// Result is a matched reply.
type Result struct {
	Frame    frame.Frame
	Attempts int
}

// Engine serializes exchanges on one transport. It is safe for concurrent
// use; callers queue for the transport and give up when their context ends.
type Engine struct {
	cfg       Config
	transport transport.Transport

	sem    *semaphore.Weighted // one exchange at a time
	reader *frame.Reader
	state  atomic.Int32
}

// New creates an Engine. Zero Config fields select the defaults.
func New(t transport.Transport, cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Commands == (frame.Commands{}) {
		cfg.Commands = frame.DefaultCommands()
	}
	if cfg.Codec == nil {
		cfg.Codec = frame.DefaultCodec()
	}

	r := cfg.Codec.NewReader(t)
	if cfg.PollInterval > 0 {
		r.PollInterval = cfg.PollInterval
	}
	return &Engine{
		cfg:       cfg,
		transport: t,
		sem:       semaphore.NewWeighted(1),
		reader:    r,
	}
}

// Address returns the local node address.
func (e *Engine) Address() byte {
	return e.cfg.Address
}

// Table returns the register table of the engine, possibly nil.
func (e *Engine) Table() *register.Table {
	return e.cfg.Table
}

// State returns the state of the current or last exchange.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Do sends req.Frame and waits for a matching reply, resending the same wire
// bytes after a timeout or a corrupt reply until MaxAttempts sends were made.
// A NACK reply is returned together with a *NackError.
func (e *Engine) Do(ctx context.Context, req Request) (Result, error) {
	wire, err := e.cfg.Codec.Encode(req.Frame)
	if err != nil {
		return Result{}, err
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	defer e.sem.Release(1)

	// Bytes left over from an earlier exchange belong to it.
	e.reader.Reset()
	e.state.Store(int32(StateIdle))

	var last error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			e.transition(StateFailed, req, attempt-1, err)
			return Result{Attempts: attempt - 1}, fmt.Errorf("%w: %w", ErrCanceled, err)
		}

		e.transition(StateAwaitingResponse, req, attempt, nil)
		slog.Debug("send request", "frame", req.Frame, "wire", hex.EncodeToString(wire), "attempt", attempt)
		if err := e.transport.Write(wire); err != nil {
			e.transition(StateFailed, req, attempt, err)
			return Result{Attempts: attempt}, &IOError{Op: "write", Err: err}
		}

		resp, err := e.await(ctx, req)
		switch {
		case err == nil:
			e.transition(StateMatched, req, attempt, nil)
			res := Result{Frame: resp, Attempts: attempt}
			if resp.Command == frame.CommandNack {
				return res, newNackError(resp.Payload)
			}
			return res, nil

		case ctx.Err() != nil:
			e.transition(StateFailed, req, attempt, err)
			return Result{Attempts: attempt}, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())

		case errors.Is(err, frame.ErrTimeout) || frame.IsDecodeError(err):
			last = err
			e.transition(StateRetry, req, attempt, err)

		default:
			e.transition(StateFailed, req, attempt, err)
			return Result{Attempts: attempt}, &IOError{Op: "read", Err: err}
		}
	}

	e.transition(StateFailed, req, e.cfg.MaxAttempts, last)
	return Result{Attempts: e.cfg.MaxAttempts}, &RetriesExhaustedError{Attempts: e.cfg.MaxAttempts, Last: last}
}

// await reads until a reply matching req arrives, the attempt deadline passes
// or a corrupt candidate is seen. Well-formed frames that do not match are
// dropped.
func (e *Engine) await(ctx context.Context, req Request) (frame.Frame, error) {
	deadline := time.Now().Add(e.cfg.Timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			e.reader.Reset()
			return frame.Frame{}, frame.ErrTimeout
		}

		raw, err := e.reader.Next(ctx, remaining)
		if err != nil {
			return frame.Frame{}, err
		}

		resp, err := e.cfg.Codec.Decode(raw)
		if err != nil {
			slog.Debug("corrupt reply", "wire", hex.EncodeToString(raw), "err", err)
			return frame.Frame{}, err
		}
		if !e.matches(req, resp) {
			slog.Debug("discarding unrelated frame", "frame", resp)
			continue
		}
		slog.Debug("recv reply", "frame", resp)
		return resp, nil
	}
}

func (e *Engine) matches(req Request, resp frame.Frame) bool {
	if resp.Source != req.Frame.Destination || resp.Destination != req.Frame.Source {
		return false
	}
	if resp.Command == frame.CommandNack {
		return len(resp.Payload) == 0 || resp.Payload[0] == req.Frame.Command
	}
	if len(req.Expect) > 0 && !slices.Contains(req.Expect, resp.Command) {
		return false
	}
	return req.Match == nil || req.Match(resp)
}

func (e *Engine) transition(to State, req Request, attempt int, cause error) {
	from := e.State()
	if to == from {
		return
	}
	attrs := []any{
		"from", from,
		"to", to,
		"destination", fmt.Sprintf("%#02x", req.Frame.Destination),
		"command", fmt.Sprintf("%#02x", req.Frame.Command),
		"attempt", attempt,
	}
	if cause != nil {
		attrs = append(attrs, "err", cause)
	}
	slog.Debug("exchange state", attrs...)
	e.state.Store(int32(to))
}
