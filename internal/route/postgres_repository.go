package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL route repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const routeColumns = `
	id, tenant_id, salesperson_id, route_date, status, start_lat, start_lon,
	stops, plan, preferences, warnings, polyline,
	actual_distance_km, actual_time_minutes, efficiency_score, time_saved_minutes,
	created_at, updated_at, started_at, completed_at, cancelled_at`

// Create inserts a route and its first history entry in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, rt *Route, entry *HistoryEntry) error {
	stops, err := json.Marshal(rt.Stops)
	if err != nil {
		return err
	}
	plan, err := json.Marshal(rt.Plan)
	if err != nil {
		return err
	}
	prefs, err := json.Marshal(rt.Preferences)
	if err != nil {
		return err
	}
	warnings, err := json.Marshal(rt.Warnings)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO routes (`+routeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`,
		rt.ID, rt.TenantID, rt.SalespersonID, rt.RouteDate, rt.Status, rt.Start.Lat, rt.Start.Lon,
		stops, plan, prefs, warnings, rt.Polyline,
		actualDistance(rt), actualTime(rt), rt.EfficiencyScore, rt.TimeSavedMinutes,
		rt.CreatedAt, rt.UpdatedAt, rt.StartedAt, rt.CompletedAt, rt.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("insert route: %w", err)
	}

	if entry != nil {
		if err := insertHistory(ctx, tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Get returns a route of the tenant.
func (r *PostgresRepository) Get(ctx context.Context, tenantID, routeID string) (*Route, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+routeColumns+`
		FROM routes
		WHERE id = $1 AND tenant_id = $2
	`, routeID, tenantID)
	return scanRoute(row)
}

// Mutate locks the route row with SELECT ... FOR UPDATE, applies fn and
// writes the route and history entry before releasing the lock.
func (r *PostgresRepository) Mutate(ctx context.Context, tenantID, routeID string, fn MutateFunc) (*Route, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rt, err := scanRoute(tx.QueryRow(ctx, `
		SELECT `+routeColumns+`
		FROM routes
		WHERE id = $1 AND tenant_id = $2
		FOR UPDATE
	`, routeID, tenantID))
	if err != nil {
		return nil, err
	}

	entry, err := fn(rt)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return rt, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE routes SET
			status = $3,
			actual_distance_km = $4,
			actual_time_minutes = $5,
			efficiency_score = $6,
			time_saved_minutes = $7,
			updated_at = $8,
			started_at = $9,
			completed_at = $10,
			cancelled_at = $11
		WHERE id = $1 AND tenant_id = $2
	`,
		rt.ID, rt.TenantID, rt.Status,
		actualDistance(rt), actualTime(rt), rt.EfficiencyScore, rt.TimeSavedMinutes,
		rt.UpdatedAt, rt.StartedAt, rt.CompletedAt, rt.CancelledAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update route: %w", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rt, nil
}

// ListHistory returns a route's history, oldest first.
func (r *PostgresRepository) ListHistory(ctx context.Context, tenantID, routeID string) ([]*HistoryEntry, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM routes WHERE id = $1 AND tenant_id = $2)`,
		routeID, tenantID,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRouteNotFound
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+historyColumns+`
		FROM route_history
		WHERE route_id = $1 AND tenant_id = $2
		ORDER BY recorded_at, id
	`, routeID, tenantID)
	if err != nil {
		return nil, err
	}
	return scanHistory(rows)
}

// ListHistoryRange returns the tenant's history recorded in [from, to).
func (r *PostgresRepository) ListHistoryRange(ctx context.Context, tenantID, salespersonID string, from, to time.Time) ([]*HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+historyColumns+`
		FROM route_history
		WHERE tenant_id = $1
			AND ($2 = '' OR salesperson_id = $2)
			AND recorded_at >= $3 AND recorded_at < $4
		ORDER BY recorded_at, id
	`, tenantID, salespersonID, from, to)
	if err != nil {
		return nil, err
	}
	return scanHistory(rows)
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const historyColumns = `
	id, route_id, tenant_id, salesperson_id, status,
	planned_distance_km, planned_time_minutes, actual_distance_km, actual_time_minutes,
	efficiency_score, time_saved_minutes, recorded_at`

func insertHistory(ctx context.Context, tx pgx.Tx, e *HistoryEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO route_history (`+historyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		e.ID, e.RouteID, e.TenantID, e.SalespersonID, e.Status,
		e.PlannedDistanceKm, e.PlannedTimeMinutes, e.ActualDistanceKm, e.ActualTimeMinutes,
		e.EfficiencyScore, e.TimeSavedMinutes, e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert route history: %w", err)
	}
	return nil
}

func scanRoute(row pgx.Row) (*Route, error) {
	var (
		rt                               Route
		stops, plan, prefs, warnings     []byte
		actualDistanceKm, actualTimeMins *float64
	)

	err := row.Scan(
		&rt.ID, &rt.TenantID, &rt.SalespersonID, &rt.RouteDate, &rt.Status, &rt.Start.Lat, &rt.Start.Lon,
		&stops, &plan, &prefs, &warnings, &rt.Polyline,
		&actualDistanceKm, &actualTimeMins, &rt.EfficiencyScore, &rt.TimeSavedMinutes,
		&rt.CreatedAt, &rt.UpdatedAt, &rt.StartedAt, &rt.CompletedAt, &rt.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}

	for _, f := range []struct {
		data []byte
		dst  any
	}{
		{stops, &rt.Stops},
		{plan, &rt.Plan},
		{prefs, &rt.Preferences},
		{warnings, &rt.Warnings},
	} {
		if len(f.data) == 0 {
			continue
		}
		if err := json.Unmarshal(f.data, f.dst); err != nil {
			return nil, fmt.Errorf("decode route %s: %w", rt.ID, err)
		}
	}

	if actualDistanceKm != nil {
		rt.Actual = &Actuals{DistanceKm: *actualDistanceKm}
		if actualTimeMins != nil {
			rt.Actual.TimeMinutes = *actualTimeMins
		}
	}

	return &rt, nil
}

func scanHistory(rows pgx.Rows) ([]*HistoryEntry, error) {
	defer rows.Close()

	var out []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.RouteID, &e.TenantID, &e.SalespersonID, &e.Status,
			&e.PlannedDistanceKm, &e.PlannedTimeMinutes, &e.ActualDistanceKm, &e.ActualTimeMinutes,
			&e.EfficiencyScore, &e.TimeSavedMinutes, &e.RecordedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func actualDistance(rt *Route) *float64 {
	if rt.Actual == nil {
		return nil
	}
	v := rt.Actual.DistanceKm
	return &v
}

func actualTime(rt *Route) *float64 {
	if rt.Actual == nil {
		return nil
	}
	v := rt.Actual.TimeMinutes
	return &v
}
