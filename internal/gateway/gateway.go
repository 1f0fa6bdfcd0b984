// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caden602/NIST-LAC1550/exchange"
	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/caden602/NIST-LAC1550/transport"
)

// Downstream is a device link and the engine serializing exchanges on it.
type Downstream struct {
	Name   string
	Link   transport.Link
	Engine *exchange.Engine
}

// NewDownstream creates a Downstream for link.
func NewDownstream(name string, link transport.Link, cfg exchange.Config) *Downstream {
	return &Downstream{
		Name:   name,
		Link:   link,
		Engine: exchange.New(link, cfg),
	}
}

// Gateway represents a single gateway instance.
// It bridges multiple Upstreams (hosts) to multiple Downstreams (devices) by destination address.
type Gateway struct {
	Name         string
	Upstreams    []transport.Upstream
	Routes       map[byte]*Downstream
	DefaultRoute *Downstream

	// RequestTimeout bounds one relayed exchange including retries. Zero
	// leaves it to the engine.
	RequestTimeout time.Duration
}

// NewGateway creates a new Gateway instance
func NewGateway(name string, upstreams []transport.Upstream, routes map[byte]*Downstream, defaultRoute *Downstream) *Gateway {
	return &Gateway{
		Name:         name,
		Upstreams:    upstreams,
		Routes:       routes,
		DefaultRoute: defaultRoute,
	}
}

// ParseAddresses parses a list of node addresses (e.g. "0x42,1,5-10") into a slice of bytes.
func ParseAddresses(input string) ([]byte, error) {
	var ids []byte
	parts := strings.Split(input, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			// Range
			ranges := strings.Split(part, "-")
			if len(ranges) != 2 {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
			start, err := parseAddress(ranges[0])
			if err != nil {
				return nil, fmt.Errorf("invalid start of range: %w", err)
			}
			end, err := parseAddress(ranges[1])
			if err != nil {
				return nil, fmt.Errorf("invalid end of range: %w", err)
			}
			if start > end {
				return nil, fmt.Errorf("start of range %d is greater than end %d", start, end)
			}
			for i := start; i <= end; i++ {
				ids = append(ids, byte(i))
			}
		} else {
			// Single
			id, err := parseAddress(part)
			if err != nil {
				return nil, fmt.Errorf("invalid address: %w", err)
			}
			ids = append(ids, byte(id))
		}
	}
	return ids, nil
}

func parseAddress(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 0, 0)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("address out of range: %d", n)
	}
	return int(n), nil
}

// Start starts all upstream servers and the downstream connections
func (g *Gateway) Start(ctx context.Context) error {
	// Connect Downstreams (Unique instances)
	uniqueDownstreams := make(map[*Downstream]struct{})
	for _, ds := range g.Routes {
		uniqueDownstreams[ds] = struct{}{}
	}
	if g.DefaultRoute != nil {
		uniqueDownstreams[g.DefaultRoute] = struct{}{}
	}

	for ds := range uniqueDownstreams {
		if err := ds.Link.Connect(ctx); err != nil {
			// The link reconnects on the next write.
			slog.Error("Failed to connect downstream", "gateway", g.Name, "downstream", ds.Name, "err", err)
		}
	}

	// Start Upstreams
	var wg sync.WaitGroup
	for i, us := range g.Upstreams {
		wg.Add(1)
		go func(ups transport.Upstream, idx int) {
			defer wg.Done()
			slog.Info("Starting upstream", "gateway", g.Name, "index", idx)
			if err := ups.Start(ctx, g.HandleRequest); err != nil {
				slog.Error("Upstream stopped with error", "gateway", g.Name, "index", idx, "err", err)
			}
		}(us, i)
	}

	<-ctx.Done()

	// Graceful shutdown
	for _, us := range g.Upstreams {
		us.Close()
	}
	for ds := range uniqueDownstreams {
		ds.Link.Close()
	}

	wg.Wait()
	return nil
}

// HandleRequest relays one upstream request to the downstream routed for
// its destination and returns the device reply, NACKs included.
func (g *Gateway) HandleRequest(ctx context.Context, req frame.Frame) (frame.Frame, error) {
	// Route Lookup
	target, ok := g.Routes[req.Destination]
	if !ok {
		target = g.DefaultRoute
	}
	if target == nil {
		// Not ours; a device on the same bus may answer.
		slog.Debug("No route for destination", "gateway", g.Name, "destination", fmt.Sprintf("%#02x", req.Destination))
		return frame.Frame{}, transport.ErrNoReply
	}

	if g.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.RequestTimeout)
		defer cancel()
	}

	res, err := target.Engine.Do(ctx, exchange.Request{Frame: req})
	var nack *exchange.NackError
	if errors.As(err, &nack) {
		return res.Frame, nil
	}
	if err != nil {
		slog.Error("Downstream request failed", "gateway", g.Name, "downstream", target.Name, "frame", req, "err", err)
		return frame.Frame{}, err
	}
	return res.Frame, nil
}
