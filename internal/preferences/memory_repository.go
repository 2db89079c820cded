package preferences

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInMemoryRepository creates a new in-memory preferences repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
	}
}

// Get returns the row for the exact scope.
func (r *InMemoryRepository) Get(_ context.Context, tenantID, salespersonID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[scopeKey(tenantID, salespersonID)]
	if !ok {
		return nil, ErrPreferencesNotFound
	}
	return copyRecord(rec), nil
}

// Put creates or replaces the row for the record's scope.
func (r *InMemoryRepository) Put(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[scopeKey(record.TenantID, record.SalespersonID)] = copyRecord(record)
	return nil
}

func scopeKey(tenantID, salespersonID string) string {
	return tenantID + "/" + salespersonID
}
