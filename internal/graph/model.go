// Package graph provides the location graph for Wayfinder.
//
// It stores named locations as nodes and weighted, directed routes between
// them as edges. Weights are travel times and are never negative.
package graph

import "errors"

var (
	// ErrNodeNotFound is returned when an edge references an unknown node.
	ErrNodeNotFound = errors.New("graph: node not found")

	// ErrEdgeNotFound is returned when an edge lookup misses.
	ErrEdgeNotFound = errors.New("graph: edge not found")

	// ErrNegativeWeight is returned for negative or NaN edge weights.
	ErrNegativeWeight = errors.New("graph: edge weight must be a non-negative number")
)

// Edge is a directed, weighted connection between two nodes.
type Edge[N comparable] struct {
	// From is the source node identity.
	From N

	// To is the destination node identity.
	To N

	// Weight is the travel cost along the edge.
	Weight float64
}

// adjacency is the per-node record kept by Graph.
// out preserves insertion order so iteration is deterministic.
type adjacency[N comparable] struct {
	out []Edge[N]
	in  []N
}

func (a *adjacency[N]) outIndex(to N) int {
	for i, e := range a.out {
		if e.To == to {
			return i
		}
	}
	return -1
}

func (a *adjacency[N]) dropIncoming(from N) {
	for i, id := range a.in {
		if id == from {
			a.in = append(a.in[:i], a.in[i+1:]...)
			return
		}
	}
}
