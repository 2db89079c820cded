package preferences

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL preferences repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get returns the row for the exact scope.
func (r *PostgresRepository) Get(ctx context.Context, tenantID, salespersonID string) (*Record, error) {
	query := `
		SELECT tenant_id, salesperson_id, preferences, updated_at
		FROM route_preferences
		WHERE tenant_id = $1 AND salesperson_id = $2
	`

	var (
		rec       Record
		prefsJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, tenantID, salespersonID).Scan(
		&rec.TenantID,
		&rec.SalespersonID,
		&prefsJSON,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreferencesNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(prefsJSON, &rec.Preferences); err != nil {
		return nil, err
	}

	return &rec, nil
}

// Put creates or replaces the row for the record's scope.
func (r *PostgresRepository) Put(ctx context.Context, record *Record) error {
	prefsJSON, err := json.Marshal(record.Preferences)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO route_preferences (tenant_id, salesperson_id, preferences, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, salesperson_id) DO UPDATE SET
			preferences = EXCLUDED.preferences,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query, record.TenantID, record.SalespersonID, prefsJSON, record.UpdatedAt)
	return err
}
