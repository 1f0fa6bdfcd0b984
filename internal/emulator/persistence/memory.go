// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import "github.com/caden602/NIST-LAC1550/internal/emulator/model"

// MemoryStorage is a no-op storage (non-persistent).
type MemoryStorage struct{}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (ms *MemoryStorage) Load() (*model.RegisterFile, error) {
	return model.NewRegisterFile(), nil
}

func (ms *MemoryStorage) Save(m *model.RegisterFile) error {
	return nil
}

func (ms *MemoryStorage) OnWrite(id byte) {
	// No-op
}

func (ms *MemoryStorage) Close() error {
	return nil
}
