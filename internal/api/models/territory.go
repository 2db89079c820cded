package models

// ClusterRequest is the body of POST /v1/territories:cluster.
type ClusterRequest struct {
	K             int    `json:"k"`
	Seed          *int64 `json:"seed,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
}

// BoundingBox is the coordinate extent of a territory.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Territory is one cluster of visits.
type Territory struct {
	Index            int         `json:"index"`
	Centroid         Point       `json:"centroid"`
	Bounds           BoundingBox `json:"bounds"`
	RadiusKm         float64     `json:"radius_km"`
	MemberCount      int         `json:"member_count"`
	MemberIDs        []string    `json:"member_ids"`
	TotalPotential   float64     `json:"total_potential"`
	AveragePotential float64     `json:"average_potential"`
}

// ClusterSet is the API view of a tenant's territories.
type ClusterSet struct {
	ID            string      `json:"id"`
	K             int         `json:"k"`
	ClusterCount  int         `json:"cluster_count"`
	Seed          int64       `json:"seed"`
	Iterations    int         `json:"iterations"`
	Converged     bool        `json:"converged"`
	PointCount    int         `json:"point_count"`
	ExcludedCount int         `json:"excluded_count"`
	Territories   []Territory `json:"territories"`
	CreatedAt     Timestamp   `json:"created_at"`
}
