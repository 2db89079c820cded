package visit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldroute/fieldroute/internal/optimizer"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL visit repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const visitColumns = `id, tenant_id, customer_id, salesperson_id, latitude, longitude, potential, visited_at`

// GetVisits returns the tenant's visits with the given ids, in request order.
func (r *PostgresRepository) GetVisits(ctx context.Context, tenantID string, ids []string) ([]*Visit, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE tenant_id = $1 AND id = ANY($2)
	`

	rows, err := r.pool.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, err
	}
	found, err := scanVisits(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Visit, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}
	out := make([]*Visit, 0, len(found))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
			delete(byID, id)
		}
	}
	return out, nil
}

// ListHistory returns every visit recorded for the tenant.
func (r *PostgresRepository) ListHistory(ctx context.Context, tenantID string) ([]*Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE tenant_id = $1
		ORDER BY visited_at NULLS LAST, id
	`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	return scanVisits(rows)
}

func scanVisits(rows pgx.Rows) ([]*Visit, error) {
	defer rows.Close()

	var out []*Visit
	for rows.Next() {
		var (
			v         Visit
			potential *string
			visitedAt *time.Time
		)
		if err := rows.Scan(
			&v.ID,
			&v.TenantID,
			&v.CustomerID,
			&v.SalespersonID,
			&v.Lat,
			&v.Lon,
			&potential,
			&visitedAt,
		); err != nil {
			return nil, err
		}
		if potential != nil {
			v.Potential = optimizer.ParsePotential(*potential)
		}
		v.VisitedAt = visitedAt
		out = append(out, &v)
	}
	return out, rows.Err()
}

// ActiveTimeWindows returns the active windows for the given customers.
func (r *PostgresRepository) ActiveTimeWindows(ctx context.Context, tenantID string, customerIDs []string) ([]optimizer.TimeWindow, error) {
	if len(customerIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT customer_id, day_of_week, start_minute, end_minute, is_strict, priority
		FROM customer_time_windows
		WHERE tenant_id = $1 AND customer_id = ANY($2) AND is_active
		ORDER BY customer_id, priority DESC, start_minute
	`

	rows, err := r.pool.Query(ctx, query, tenantID, customerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []optimizer.TimeWindow
	for rows.Next() {
		var (
			w          optimizer.TimeWindow
			day        *int16
			start, end int32
		)
		if err := rows.Scan(&w.CustomerID, &day, &start, &end, &w.Strict, &w.Priority); err != nil {
			return nil, err
		}
		if day != nil {
			wd := time.Weekday(*day)
			w.DayOfWeek = &wd
		}
		w.Start = optimizer.Clock(start)
		w.End = optimizer.Clock(end)
		w.Active = true
		out = append(out, w)
	}
	return out, rows.Err()
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
