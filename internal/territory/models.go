// Package territory partitions a tenant's geotagged visit history into
// geographic clusters and keeps the latest cluster set per tenant.
package territory

import (
	"errors"
	"fmt"
	"time"

	"github.com/fieldroute/fieldroute/internal/geo"
)

// Errors.
var (
	ErrInsufficientData   = errors.New("insufficient data for clustering")
	ErrInvalidOptions     = errors.New("cluster count must be at least 1")
	ErrRunInProgress      = errors.New("clustering run already in progress for tenant")
	ErrClusterSetNotFound = errors.New("cluster set not found")
)

// InsufficientDataError reports too few distinct locations for K.
type InsufficientDataError struct {
	Requested int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("requested %d clusters, only %d distinct valid locations", e.Requested, e.Available)
}

// Unwrap lets errors.Is match ErrInsufficientData.
func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// BoundingBox is the coordinate extent of a cluster's members.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Cluster is one territory.
type Cluster struct {
	Index    int
	Centroid geo.Point
	Bounds   BoundingBox
	// RadiusKm is the largest member distance from the centroid.
	RadiusKm         float64
	MemberCount      int
	MemberIDs        []string
	TotalPotential   float64
	AveragePotential float64
}

// ClusterSet is the output of one clustering run. A new set replaces the
// tenant's previous one entirely.
type ClusterSet struct {
	ID            string
	TenantID      string
	K             int
	Seed          int64
	Iterations    int
	Converged     bool
	PointCount    int
	ExcludedCount int
	Clusters      []Cluster
	CreatedAt     time.Time
}

func copyClusterSet(s *ClusterSet) *ClusterSet {
	c := *s
	c.Clusters = make([]Cluster, len(s.Clusters))
	for i, cl := range s.Clusters {
		cl.MemberIDs = append([]string(nil), cl.MemberIDs...)
		c.Clusters[i] = cl
	}
	return &c
}
