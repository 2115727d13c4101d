package store

import (
	"context"
	"sync"
)

type sealed struct {
	blob []byte
	sum  string
}

// Memory keeps sealed blobs in process. Used by tests and one-shot runs.
type Memory struct {
	mu   sync.Mutex
	data map[string]sealed
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]sealed)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	v, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return Open(v.blob, v.sum)
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	blob, sum, err := Seal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = sealed{blob: blob, sum: sum}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
