package geo

import (
	"fmt"
)

// Node is anything with an identifier and a position that can be placed in
// a DistanceMatrix.
type Node interface {
	NodeID() string
	Position() Point
}

// DistanceMatrix is a square, symmetric table of haversine distances in
// kilometers keyed by node id. The diagonal is zero.
type DistanceMatrix struct {
	index map[string]int
	km    [][]float64
}

// BuildMatrix computes all pairwise distances for the given nodes.
// Node ids must be unique.
func BuildMatrix[N Node](nodes []N) (*DistanceMatrix, error) {
	n := len(nodes)
	m := &DistanceMatrix{
		index: make(map[string]int, n),
		km:    make([][]float64, n),
	}

	for i, node := range nodes {
		id := node.NodeID()
		if _, dup := m.index[id]; dup {
			return nil, fmt.Errorf("build matrix: duplicate node id %q", id)
		}
		m.index[id] = i
		m.km[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		pi := nodes[i].Position()
		for j := i + 1; j < n; j++ {
			d := DistanceBetween(pi, nodes[j].Position())
			m.km[i][j] = d
			m.km[j][i] = d
		}
	}

	return m, nil
}

// Size returns the number of nodes in the matrix.
func (m *DistanceMatrix) Size() int {
	return len(m.km)
}

// Has reports whether the matrix contains the given node id.
func (m *DistanceMatrix) Has(id string) bool {
	_, ok := m.index[id]
	return ok
}

// Between returns the distance between two node ids in kilometers.
// It panics if either id is unknown; callers build the matrix from the same
// node set they query.
func (m *DistanceMatrix) Between(a, b string) float64 {
	i, ok := m.index[a]
	if !ok {
		panic(fmt.Sprintf("geo: node %q not in distance matrix", a))
	}
	j, ok := m.index[b]
	if !ok {
		panic(fmt.Sprintf("geo: node %q not in distance matrix", b))
	}
	return m.km[i][j]
}

// PathLength sums consecutive-pair distances along the given id sequence.
func (m *DistanceMatrix) PathLength(ids []string) float64 {
	total := 0.0
	for i := 1; i < len(ids); i++ {
		total += m.Between(ids[i-1], ids[i])
	}
	return total
}
