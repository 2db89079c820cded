package territory

import (
	"math"
	"math/rand"

	"github.com/fieldroute/fieldroute/internal/geo"
	"github.com/fieldroute/fieldroute/internal/optimizer"
)

// Clustering defaults.
const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 0.0001 // degrees
	DefaultSeed          = int64(42)
)

// Point is a clustering input.
type Point struct {
	ID        string
	Lat       float64
	Lon       float64
	Potential optimizer.Potential
}

// Options configures a k-means run.
type Options struct {
	K int
	// Seed selects the initial centroids. Nil uses DefaultSeed.
	Seed          *int64
	MaxIterations int
	// Tolerance is the largest centroid move, in degrees, that still counts
	// as converged.
	Tolerance float64
}

// Result is the outcome of KMeans.
type Result struct {
	Clusters   []Cluster
	Iterations int
	Converged  bool
	Seed       int64
}

type coord struct{ lat, lon float64 }

// DistinctLocations counts the distinct coordinates among points.
func DistinctLocations(points []Point) int {
	return len(distinct(points))
}

func distinct(points []Point) []coord {
	seen := make(map[coord]struct{}, len(points))
	out := make([]coord, 0, len(points))
	for _, p := range points {
		c := coord{p.Lat, p.Lon}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// KMeans partitions points into at most opts.K geographic clusters.
// It requires at least K distinct locations. Clusters left without members
// after the final pass are dropped, so fewer than K may be returned.
func KMeans(points []Point, opts Options) (*Result, error) {
	if opts.K < 1 {
		return nil, ErrInvalidOptions
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	seed := DefaultSeed
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	uniq := distinct(points)
	if len(uniq) < opts.K {
		return nil, &InsufficientDataError{Requested: opts.K, Available: len(uniq)}
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // clustering seeds need reproducibility, not secrecy
	rng.Shuffle(len(uniq), func(i, j int) { uniq[i], uniq[j] = uniq[j], uniq[i] })
	centroids := make([]geo.Point, opts.K)
	for i := range centroids {
		centroids[i] = geo.Point{Lat: uniq[i].lat, Lon: uniq[i].lon}
	}

	assignment := make([]int, len(points))
	res := &Result{Seed: seed}

	for res.Iterations < opts.MaxIterations {
		res.Iterations++

		for i, p := range points {
			assignment[i] = nearest(centroids, geo.Point{Lat: p.Lat, Lon: p.Lon})
		}

		next := recompute(points, assignment, centroids)
		moved := 0.0
		for i := range centroids {
			moved = math.Max(moved, math.Abs(next[i].Lat-centroids[i].Lat))
			moved = math.Max(moved, math.Abs(next[i].Lon-centroids[i].Lon))
		}
		centroids = next

		if moved <= opts.Tolerance {
			res.Converged = true
			break
		}
	}

	res.Clusters = summarize(points, assignment, centroids)
	return res, nil
}

// nearest returns the index of the closest centroid, lowest index on ties.
func nearest(centroids []geo.Point, p geo.Point) int {
	best, bestKm := 0, math.Inf(1)
	for i, c := range centroids {
		if d := geo.DistanceBetween(c, p); d < bestKm {
			best, bestKm = i, d
		}
	}
	return best
}

// recompute moves each centroid to the mean of its members. A centroid with
// no members stays where it is.
func recompute(points []Point, assignment []int, centroids []geo.Point) []geo.Point {
	sumLat := make([]float64, len(centroids))
	sumLon := make([]float64, len(centroids))
	count := make([]int, len(centroids))

	for i, p := range points {
		c := assignment[i]
		sumLat[c] += p.Lat
		sumLon[c] += p.Lon
		count[c]++
	}

	next := make([]geo.Point, len(centroids))
	for i := range centroids {
		if count[i] == 0 {
			next[i] = centroids[i]
			continue
		}
		next[i] = geo.Point{
			Lat: sumLat[i] / float64(count[i]),
			Lon: sumLon[i] / float64(count[i]),
		}
	}
	return next
}

func summarize(points []Point, assignment []int, centroids []geo.Point) []Cluster {
	members := make([][]Point, len(centroids))
	for i, p := range points {
		members[assignment[i]] = append(members[assignment[i]], p)
	}

	out := make([]Cluster, 0, len(centroids))
	for i, ms := range members {
		if len(ms) == 0 {
			continue
		}

		c := Cluster{
			Index:    len(out),
			Centroid: centroids[i],
			Bounds: BoundingBox{
				MinLat: math.Inf(1), MaxLat: math.Inf(-1),
				MinLon: math.Inf(1), MaxLon: math.Inf(-1),
			},
			MemberIDs: make([]string, 0, len(ms)),
		}
		for _, m := range ms {
			c.Bounds.MinLat = math.Min(c.Bounds.MinLat, m.Lat)
			c.Bounds.MaxLat = math.Max(c.Bounds.MaxLat, m.Lat)
			c.Bounds.MinLon = math.Min(c.Bounds.MinLon, m.Lon)
			c.Bounds.MaxLon = math.Max(c.Bounds.MaxLon, m.Lon)
			c.RadiusKm = math.Max(c.RadiusKm, geo.DistanceBetween(c.Centroid, geo.Point{Lat: m.Lat, Lon: m.Lon}))
			c.TotalPotential += m.Potential.Score()
			c.MemberIDs = append(c.MemberIDs, m.ID)
		}
		c.MemberCount = len(ms)
		c.AveragePotential = c.TotalPotential / float64(len(ms))
		out = append(out, c)
	}
	return out
}
