// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"
	"errors"
	"time"

	"github.com/caden602/NIST-LAC1550/protocol/frame"
)

// ErrNoReply is returned by a RequestHandler that deliberately stays silent,
// e.g. for frames addressed to another node.
var ErrNoReply = errors.New("transport: no reply")

// Transport is a byte-stream link to a peer. It carries no message
// boundaries of its own.
type Transport interface {
	// Write sends p in full.
	Write(p []byte) error
	// Read waits at most timeout for data. It returns no bytes and no error
	// when nothing arrived.
	Read(timeout time.Duration) ([]byte, error)
}

// Connector is implemented by transports with an explicit link lifecycle.
type Connector interface {
	Connect(ctx context.Context) error
	Close() error
}

// RequestHandler handles one decoded request frame and returns the reply to
// send back, or ErrNoReply.
type RequestHandler func(ctx context.Context, req frame.Frame) (frame.Frame, error)

// Upstream represents a source of requests (a host connected to us).
// It acts as a server.
type Upstream interface {
	// Start serves requests until ctx is done. It blocks.
	Start(ctx context.Context, handler RequestHandler) error
	Close() error
}

// Link is a Transport with a lifecycle, as used for downstream devices.
type Link interface {
	Transport
	Connector
}
