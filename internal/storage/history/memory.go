package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/newthinker/pipboard/internal/core"
)

// DefaultMaxSize bounds a MemoryStore created with a non-positive size.
const DefaultMaxSize = 1000

// MemoryStore is a bounded in-memory alert history. The oldest records
// are dropped once it is full.
type MemoryStore struct {
	records []Record
	maxSize int
	mu      sync.RWMutex
	counter int64
}

// NewMemoryStore creates a store holding at most maxSize records.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &MemoryStore{
		records: make([]Record, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save appends a.
func (m *MemoryStore) Save(ctx context.Context, a core.Alert) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counter++
	id := fmt.Sprintf("alert_%d_%d", a.At.UnixNano(), m.counter)
	m.records = append(m.records, Record{ID: id, Alert: a})

	if len(m.records) > m.maxSize {
		m.records = m.records[len(m.records)-m.maxSize:]
	}
	return id, nil
}

// GetByID returns the record with the given ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.records {
		if m.records[i].ID == id {
			r := m.records[i]
			return &r, nil
		}
	}
	return nil, core.WrapError(core.ErrNoData, fmt.Errorf("alert %q not found", id))
}

// List returns matching records, newest first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []Record{}
	for i := len(m.records) - 1; i >= 0; i-- {
		if filter.matches(m.records[i].Alert) {
			result = append(result, m.records[i])
		}
	}

	if filter.Offset >= len(result) {
		return []Record{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Count returns the number of matching records.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.records {
		if filter.matches(r.Alert) {
			count++
		}
	}
	return count, nil
}

func (f ListFilter) matches(a core.Alert) bool {
	if f.Pair != "" && a.Pair != f.Pair {
		return false
	}
	if f.Strategy != "" && a.Strategy != f.Strategy {
		return false
	}
	if f.Kind != "" && a.Kind != f.Kind {
		return false
	}
	if !f.From.IsZero() && a.At.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && a.At.After(f.To) {
		return false
	}
	return true
}
