package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps watermarks for the lifetime of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{data: make(map[string]time.Time)}
}

func (m *MemoryStore) Watermark(ctx context.Context, pair string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.data[string(watermarkKey(pair))]
	return ts, ok, nil
}

func (m *MemoryStore) SetWatermark(ctx context.Context, pair string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(watermarkKey(pair))] = ts.UTC()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
