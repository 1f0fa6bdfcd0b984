// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/caden602/NIST-LAC1550/internal/emulator/model"
	"github.com/edsrzf/mmap-go"
)

// MmapStorage implements persistence using memory-mapped files.
// Register writes land directly in the mapping.
type MmapStorage struct {
	path string
	file *os.File
	data mmap.MMap
}

// NewMmapStorage creates a new MmapStorage.
func NewMmapStorage(path string) *MmapStorage {
	return &MmapStorage{
		path: path,
	}
}

// Load loads the register file by memory-mapping the file.
func (ms *MmapStorage) Load() (*model.RegisterFile, error) {
	f, err := openSized(ms.path)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	m, err := model.NewRegisterFileFrom(data)
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	ms.file = f
	ms.data = data
	return m, nil
}

// Save flushes the mmap to disk.
func (ms *MmapStorage) Save(m *model.RegisterFile) error {
	if ms.data == nil {
		return fmt.Errorf("mmap data is nil")
	}
	return ms.data.Flush()
}

// OnWrite triggers a flush for persistence.
func (ms *MmapStorage) OnWrite(id byte) {
	if ms.data == nil {
		return
	}
	if err := ms.data.Flush(); err != nil {
		slog.Error("Failed to flush mmap", "register", id, "err", err)
	}
}

// Close unmaps and closes the file.
func (ms *MmapStorage) Close() error {
	var err error
	if ms.data != nil {
		if e := ms.data.Unmap(); e != nil {
			err = e
		}
		ms.data = nil
	}
	if ms.file != nil {
		if e := ms.file.Close(); e != nil {
			err = e
		}
		ms.file = nil
	}
	return err
}
