// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/caden602/NIST-LAC1550/protocol/frame"
)

// DefaultFrameTimeout bounds the gap between the first byte of a request and
// its terminator on a served stream.
const DefaultFrameTimeout = 2 * time.Second

// Stream serves framed requests arriving on one Transport.
type Stream struct {
	Transport Transport
	Codec     *frame.Codec
	Handler   RequestHandler

	// FrameTimeout, if positive, replaces DefaultFrameTimeout.
	FrameTimeout time.Duration
	// Name labels log records.
	Name string
}

// Serve reads requests until ctx is done or the transport fails. Corrupt
// candidates are dropped; handler errors other than ErrNoReply are logged and
// the request goes unanswered, leaving the peer to time out.
func (s *Stream) Serve(ctx context.Context) error {
	codec := s.Codec
	if codec == nil {
		codec = frame.DefaultCodec()
	}
	timeout := s.FrameTimeout
	if timeout <= 0 {
		timeout = DefaultFrameTimeout
	}

	reader := codec.NewReader(s.Transport)
	for {
		raw, err := reader.Listen(ctx, timeout)
		switch {
		case errors.Is(err, frame.ErrTimeout):
			slog.Debug("dropping incomplete request", "stream", s.Name, "timeout", timeout)
			continue
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return err
		}

		req, err := codec.Decode(raw)
		if err != nil {
			slog.Debug("dropping corrupt request", "stream", s.Name, "frame", hex.EncodeToString(raw), "err", err)
			continue
		}
		slog.Debug("recv request", "stream", s.Name, "frame", req)

		resp, err := s.Handler(ctx, req)
		if errors.Is(err, ErrNoReply) {
			continue
		}
		if err != nil {
			slog.Error("request handler failed", "stream", s.Name, "frame", req, "err", err)
			continue
		}

		out, err := codec.Encode(resp)
		if err != nil {
			slog.Error("failed to encode reply", "stream", s.Name, "frame", resp, "err", err)
			continue
		}
		if err := s.Transport.Write(out); err != nil {
			return err
		}
		slog.Debug("sent reply", "stream", s.Name, "frame", resp)
	}
}
