package store

import (
	"context"
	"sync"
)

// MemoryStore guarda tudo num map. Usado nos testes e pelo driver memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (m *MemoryStore) BeginTx(_ context.Context) (Tx, error) {
	return &memoryTx{store: m, pending: make(map[string]string)}, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Snapshot retorna uma cópia dos dados gravados
func (m *MemoryStore) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

type memoryTx struct {
	store   *MemoryStore
	pending map[string]string
	done    bool
}

func (t *memoryTx) Set(_ context.Context, key, value string) error {
	if t.done {
		return ErrTxDone
	}
	t.pending[key] = value
	return nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for k, v := range t.pending {
		t.store.data[k] = v
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	t.done = true
	t.pending = nil
	return nil
}
