// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"log/slog"

	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/caden602/NIST-LAC1550/internal/emulator/model"
)

// Storage defines the interface for persisting the emulator register file.
type Storage interface {
	// Load loads the register file from storage.
	// If no data exists, it returns a new empty register file.
	Load() (*model.RegisterFile, error)

	// Save saves the current register file to storage.
	Save(m *model.RegisterFile) error

	// OnWrite is a hook called whenever a register is modified.
	// It allows the storage to perform real-time persistence.
	OnWrite(id byte)

	// Close releases the backing resources.
	Close() error
}

// New selects a storage backend for cfg.
func New(cfg config.PersistenceConfig) Storage {
	switch cfg.Type {
	case "file":
		slog.Info("Initializing emulator with file persistence", "path", cfg.Path)
		return NewFileStorage(cfg.Path)
	case "mmap":
		slog.Info("Initializing emulator with MMAP persistence", "path", cfg.Path)
		return NewMmapStorage(cfg.Path)
	default:
		slog.Info("Initializing emulator with memory storage (non-persistent)")
		return NewMemoryStorage()
	}
}
