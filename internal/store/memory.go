package store

import (
	"context"
	"sync"
)

// Memory keeps state in process. It is the default backend.
type Memory struct {
	mu       sync.RWMutex
	endpoint string
	snap     *Snapshot
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Endpoint(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.endpoint, nil
}

func (m *Memory) SetEndpoint(_ context.Context, url string) error {
	m.mu.Lock()
	m.endpoint = url
	m.mu.Unlock()
	return nil
}

func (m *Memory) Snapshot(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap == nil {
		return nil, nil
	}
	cp := *m.snap
	return &cp, nil
}

func (m *Memory) PutSnapshot(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	m.snap = &snap
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeleteSnapshot(_ context.Context) error {
	m.mu.Lock()
	m.snap = nil
	m.mu.Unlock()
	return nil
}

func (m *Memory) Purge(_ context.Context) error {
	m.mu.Lock()
	m.endpoint = ""
	m.snap = nil
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
