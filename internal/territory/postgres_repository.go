package territory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldroute/fieldroute/internal/geo"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL cluster repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ReplaceClusterSet deletes the tenant's previous set and inserts the new
// one in a single transaction. Clusters and members cascade on delete.
func (r *PostgresRepository) ReplaceClusterSet(ctx context.Context, set *ClusterSet) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM territory_cluster_sets WHERE tenant_id = $1`, set.TenantID); err != nil {
		return fmt.Errorf("delete previous cluster set: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO territory_cluster_sets
			(id, tenant_id, k, seed, iterations, converged, point_count, excluded_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, set.ID, set.TenantID, set.K, set.Seed, set.Iterations, set.Converged, set.PointCount, set.ExcludedCount, set.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert cluster set: %w", err)
	}

	clusterRows := make([][]any, 0, len(set.Clusters))
	var memberRows [][]any
	for _, c := range set.Clusters {
		clusterRows = append(clusterRows, []any{
			set.ID, c.Index, c.Centroid.Lat, c.Centroid.Lon,
			c.Bounds.MinLat, c.Bounds.MaxLat, c.Bounds.MinLon, c.Bounds.MaxLon,
			c.RadiusKm, c.MemberCount, c.TotalPotential,
		})
		for _, id := range c.MemberIDs {
			memberRows = append(memberRows, []any{set.ID, c.Index, id})
		}
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"territory_clusters"},
		[]string{"set_id", "idx", "centroid_lat", "centroid_lon", "min_lat", "max_lat", "min_lon", "max_lon", "radius_km", "member_count", "total_potential"},
		pgx.CopyFromRows(clusterRows),
	); err != nil {
		return fmt.Errorf("insert clusters: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"territory_cluster_members"},
		[]string{"set_id", "cluster_idx", "visit_id"},
		pgx.CopyFromRows(memberRows),
	); err != nil {
		return fmt.Errorf("insert cluster members: %w", err)
	}

	return tx.Commit(ctx)
}

// GetLatest returns the tenant's current cluster set.
func (r *PostgresRepository) GetLatest(ctx context.Context, tenantID string) (*ClusterSet, error) {
	var set ClusterSet
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, k, seed, iterations, converged, point_count, excluded_count, created_at
		FROM territory_cluster_sets
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID).Scan(
		&set.ID,
		&set.TenantID,
		&set.K,
		&set.Seed,
		&set.Iterations,
		&set.Converged,
		&set.PointCount,
		&set.ExcludedCount,
		&set.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClusterSetNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT idx, centroid_lat, centroid_lon, min_lat, max_lat, min_lon, max_lon, radius_km, member_count, total_potential
		FROM territory_clusters
		WHERE set_id = $1
		ORDER BY idx
	`, set.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byIndex := make(map[int]int)
	for rows.Next() {
		var c Cluster
		var centroid geo.Point
		if err := rows.Scan(
			&c.Index, &centroid.Lat, &centroid.Lon,
			&c.Bounds.MinLat, &c.Bounds.MaxLat, &c.Bounds.MinLon, &c.Bounds.MaxLon,
			&c.RadiusKm, &c.MemberCount, &c.TotalPotential,
		); err != nil {
			return nil, err
		}
		c.Centroid = centroid
		if c.MemberCount > 0 {
			c.AveragePotential = c.TotalPotential / float64(c.MemberCount)
		}
		byIndex[c.Index] = len(set.Clusters)
		set.Clusters = append(set.Clusters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := r.pool.Query(ctx, `
		SELECT cluster_idx, visit_id
		FROM territory_cluster_members
		WHERE set_id = $1
		ORDER BY cluster_idx, visit_id
	`, set.ID)
	if err != nil {
		return nil, err
	}
	defer members.Close()

	for members.Next() {
		var (
			idx     int
			visitID string
		)
		if err := members.Scan(&idx, &visitID); err != nil {
			return nil, err
		}
		if pos, ok := byIndex[idx]; ok {
			set.Clusters[pos].MemberIDs = append(set.Clusters[pos].MemberIDs, visitID)
		}
	}
	return &set, members.Err()
}
