package territory

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu   sync.RWMutex
	sets map[string]*ClusterSet // keyed by tenant ID
}

// NewInMemoryRepository creates a new in-memory cluster repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sets: make(map[string]*ClusterSet),
	}
}

// ReplaceClusterSet swaps the tenant's cluster set.
func (r *InMemoryRepository) ReplaceClusterSet(_ context.Context, set *ClusterSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[set.TenantID] = copyClusterSet(set)
	return nil
}

// GetLatest returns the tenant's current cluster set.
func (r *InMemoryRepository) GetLatest(_ context.Context, tenantID string) (*ClusterSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.sets[tenantID]
	if !ok {
		return nil, ErrClusterSetNotFound
	}
	return copyClusterSet(set), nil
}
