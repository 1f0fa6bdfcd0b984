// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caden602/NIST-LAC1550/internal/emulator/model"
)

// FileStorage keeps the register file in memory and writes it back to disk
// on every change.
type FileStorage struct {
	path string
	file *os.File
	data []byte
}

// NewFileStorage creates a new FileStorage.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path: path,
	}
}

// Load reads the register file from disk.
func (ms *FileStorage) Load() (*model.RegisterFile, error) {
	f, err := openSized(ms.path)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	m, err := model.NewRegisterFileFrom(data)
	if err != nil {
		f.Close()
		return nil, err
	}
	ms.file = f
	ms.data = data
	return m, nil
}

// Save writes the data to disk.
func (ms *FileStorage) Save(m *model.RegisterFile) error {
	return ms.sync()
}

// OnWrite triggers a sync for persistence.
func (ms *FileStorage) OnWrite(id byte) {
	if err := ms.sync(); err != nil {
		slog.Error("Failed to sync file", "register", id, "err", err)
	}
}

func (ms *FileStorage) sync() error {
	if ms.data == nil || ms.file == nil {
		return nil
	}
	if _, err := ms.file.WriteAt(ms.data, 0); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := ms.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file to disk: %w", err)
	}
	return nil
}

// Close the file.
func (ms *FileStorage) Close() error {
	if ms.file == nil {
		return nil
	}
	err := ms.file.Close()
	ms.file = nil
	return err
}
