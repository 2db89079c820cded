package territory

import "context"

// Repository stores the latest cluster set per tenant.
type Repository interface {
	// ReplaceClusterSet atomically swaps the tenant's cluster set for set.
	ReplaceClusterSet(ctx context.Context, set *ClusterSet) error

	// GetLatest returns the tenant's current cluster set.
	GetLatest(ctx context.Context, tenantID string) (*ClusterSet, error)
}
