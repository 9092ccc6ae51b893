package sheetstore

import (
	"context"
	"sync"

	"adpulse/pkg/contracts/domain"
)

// MemoryStore is an in-process Store used when no spreadsheet is
// configured. History lives only for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored records.
func (m *MemoryStore) Load(context.Context) ([]domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

// Replace swaps the stored history for the given records.
func (m *MemoryStore) Replace(_ context.Context, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make([]domain.Record, len(records))
	copy(m.records, records)
	return nil
}

// Append adds records to the stored history.
func (m *MemoryStore) Append(_ context.Context, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}
