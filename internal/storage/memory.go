package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Memory keeps objects in a map. It backs STORAGE=memory and tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemory returns an empty in-memory object store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("memory: read object: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[cleanKey(key)] = data
	return nil
}

func (m *Memory) PresignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[cleanKey(key)]; !ok {
		return "", fmt.Errorf("memory: no object %q", key)
	}
	return fmt.Sprintf("memory://%s?expires=%d", cleanKey(key), int(ttl.Seconds())), nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, cleanKey(key))
	return nil
}

// Has reports whether key is stored.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[cleanKey(key)]
	return ok
}
