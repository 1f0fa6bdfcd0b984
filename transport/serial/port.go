// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serial

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/grid-x/serial"
)

const (
	// Default timeouts
	serialReadTimeout = 20 * time.Millisecond
	serialIdleTimeout = 60 * time.Second

	readChunk = 256
)

// Port is a serial line implementing transport.Transport. The device is
// opened lazily and closed again after IdleTimeout without traffic.
type Port struct {
	// Serial port configuration. Timeout bounds a single read from the
	// device and should stay well below the exchange timeout.
	serial.Config

	IdleTimeout time.Duration

	mu sync.Mutex
	// port is platform-dependent data structure for serial port.
	port         io.ReadWriteCloser
	lastActivity time.Time
	closeTimer   *time.Timer

	open func(*serial.Config) (io.ReadWriteCloser, error)
}

// NewPort allocates a Port for cfg.
func NewPort(cfg config.SerialConfig) *Port {
	p := &Port{
		Config: serial.Config{
			Address:  cfg.Device,
			BaudRate: cfg.BaudRate,
			DataBits: cfg.DataBits,
			StopBits: cfg.StopBits,
			Parity:   cfg.Parity,
			Timeout:  cfg.Timeout,
		},
		IdleTimeout: cfg.IdleTimeout,
	}
	if p.Config.Timeout <= 0 {
		p.Config.Timeout = serialReadTimeout
	}
	if p.IdleTimeout == 0 {
		p.IdleTimeout = serialIdleTimeout
	}
	return p
}

// Connect opens the device if it is not open yet.
func (p *Port) Connect(ctx context.Context) (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.connect(ctx)
}

// connect opens the device if it is not open. Caller must hold the mutex.
func (p *Port) connect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if p.port == nil {
		open := p.open
		if open == nil {
			open = openSerial
		}
		port, err := open(&p.Config)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", p.Config.Address, err)
		}
		p.port = port
		slog.Debug("serial port opened", "device", p.Config.Address, "baud", p.Config.BaudRate)
	}
	return nil
}

func openSerial(c *serial.Config) (io.ReadWriteCloser, error) {
	return serial.Open(c)
}

// Close closes the device.
func (p *Port) Close() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.close()
}

// close closes the device if it is open. Caller must hold the mutex.
func (p *Port) close() (err error) {
	if p.port != nil {
		err = p.port.Close()
		p.port = nil
	}
	return
}

// Write sends b, opening the device first if needed.
func (p *Port) Write(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(context.Background()); err != nil {
		return err
	}
	p.touch()

	slog.Debug("serial write", "device", p.Config.Address, "data", hex.EncodeToString(b))
	for len(b) > 0 {
		n, err := p.port.Write(b)
		if err != nil {
			p.close()
			return err
		}
		b = b[n:]
	}
	return nil
}

// Read returns whatever arrives within timeout, polling the device with its
// configured read timeout. A quiet line yields no bytes and no error.
func (p *Port) Read(timeout time.Duration) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(context.Background()); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	buf := make([]byte, readChunk)
	for {
		n, err := p.port.Read(buf)
		if n > 0 {
			p.touch()
			slog.Debug("serial read", "device", p.Config.Address, "data", hex.EncodeToString(buf[:n]))
			return buf[:n], nil
		}
		if err != nil && !errors.Is(err, serial.ErrTimeout) {
			p.close()
			return nil, err
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
	}
}

// touch records activity and rearms the idle timer. Caller must hold the mutex.
func (p *Port) touch() {
	p.lastActivity = time.Now()
	p.startCloseTimer()
}

func (p *Port) startCloseTimer() {
	if p.IdleTimeout <= 0 {
		return
	}
	if p.closeTimer == nil {
		p.closeTimer = time.AfterFunc(p.IdleTimeout, p.closeIdle)
	} else {
		p.closeTimer.Reset(p.IdleTimeout)
	}
}

// closeIdle closes the device if the last activity is older than IdleTimeout.
func (p *Port) closeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.IdleTimeout <= 0 {
		return
	}

	if idle := time.Since(p.lastActivity); idle >= p.IdleTimeout {
		slog.Debug("closing serial port due to idle timeout", "device", p.Config.Address, "idle", idle)
		p.close()
	}
}
