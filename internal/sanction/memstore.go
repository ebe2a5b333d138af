package sanction

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps records in process memory. It is used when no database
// is configured; sanctions then do not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Subject]Record
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Subject]Record)}
}

func (m *MemoryStore) Insert(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.Subject]; ok {
		return ErrAlreadySanctioned
	}
	rec.TakenRoles = slices.Clone(rec.TakenRoles)
	m.records[rec.Subject] = rec
	return nil
}

func (m *MemoryStore) FindBySubject(ctx context.Context, subject Subject) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[subject]
	if !ok {
		return nil, nil
	}
	rec.TakenRoles = slices.Clone(rec.TakenRoles)
	return &rec, nil
}

func (m *MemoryStore) FindAndDelete(ctx context.Context, subject Subject) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[subject]
	if !ok {
		return nil, nil
	}
	delete(m.records, subject)
	return &rec, nil
}

func (m *MemoryStore) ListActive(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		rec.TakenRoles = slices.Clone(rec.TakenRoles)
		out = append(out, rec)
	}
	return out, nil
}
