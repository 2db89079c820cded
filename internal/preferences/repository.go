package preferences

import "context"

// Repository defines the interface for preferences storage.
type Repository interface {
	// Get returns the row for the exact scope. Use an empty salespersonID
	// for the tenant-wide row.
	Get(ctx context.Context, tenantID, salespersonID string) (*Record, error)

	// Put creates or replaces the row for the record's scope.
	Put(ctx context.Context, record *Record) error
}
