package graph

import (
	"fmt"
	"iter"
	"math"
	"sync"

	"github.com/Benny93/wayfinder-go/internal/hashtable"
)

// Graph is an in-memory directed graph with adjacency lists.
//
// Nodes are indexed by identity in a hashtable.Map. Removing a node cascades
// to every edge where the node appears as source or destination.
type Graph[N comparable] struct {
	mu    sync.RWMutex
	nodes *hashtable.Map[N, *adjacency[N]]
	edges int
}

// New creates an empty graph.
func New[N comparable]() *Graph[N] {
	return &Graph[N]{
		nodes: hashtable.NewDefault[N, *adjacency[N]](),
	}
}

// NodeCount returns the number of nodes.
func (g *Graph[N]) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes.Size()
}

// EdgeCount returns the number of edges.
func (g *Graph[N]) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges
}

// InsertNode adds a node. It returns false if the node already exists.
func (g *Graph[N]) InsertNode(id N) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.nodes.ContainsKey(id) {
		return false, nil
	}
	if err := g.nodes.Put(id, &adjacency[N]{}); err != nil {
		return false, fmt.Errorf("inserting node: %w", err)
	}
	return true, nil
}

// RemoveNode removes a node and all edges touching it.
// Returns true if the node existed.
func (g *Graph[N]) RemoveNode(id N) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	adj, err := g.nodes.Remove(id)
	if err != nil {
		return false
	}

	for _, e := range adj.out {
		if succ, err := g.nodes.Get(e.To); err == nil {
			succ.dropIncoming(id)
		}
		g.edges--
	}
	for _, from := range adj.in {
		pred, err := g.nodes.Get(from)
		if err != nil {
			continue
		}
		if i := pred.outIndex(id); i >= 0 {
			pred.out = append(pred.out[:i], pred.out[i+1:]...)
			g.edges--
		}
	}
	return true
}

// ContainsNode reports whether the node exists.
func (g *Graph[N]) ContainsNode(id N) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes.ContainsKey(id)
}

// InsertEdge adds a directed edge, replacing the weight of an existing one.
func (g *Graph[N]) InsertEdge(from, to N, weight float64) error {
	if weight < 0 || math.IsNaN(weight) {
		return fmt.Errorf("%w: %v -> %v (%v)", ErrNegativeWeight, from, to, weight)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	src, err := g.nodes.Get(from)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNodeNotFound, from)
	}
	dst, err := g.nodes.Get(to)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNodeNotFound, to)
	}

	if i := src.outIndex(to); i >= 0 {
		src.out[i].Weight = weight
		return nil
	}

	src.out = append(src.out, Edge[N]{From: from, To: to, Weight: weight})
	dst.in = append(dst.in, from)
	g.edges++
	return nil
}

// RemoveEdge removes the edge from -> to. Returns true if it existed.
func (g *Graph[N]) RemoveEdge(from, to N) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, err := g.nodes.Get(from)
	if err != nil {
		return false
	}
	i := src.outIndex(to)
	if i < 0 {
		return false
	}

	src.out = append(src.out[:i], src.out[i+1:]...)
	if dst, err := g.nodes.Get(to); err == nil {
		dst.dropIncoming(from)
	}
	g.edges--
	return true
}

// ContainsEdge reports whether the edge from -> to exists.
func (g *Graph[N]) ContainsEdge(from, to N) bool {
	_, err := g.EdgeWeight(from, to)
	return err == nil
}

// EdgeWeight returns the weight of the edge from -> to.
func (g *Graph[N]) EdgeWeight(from, to N) (float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	src, err := g.nodes.Get(from)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNodeNotFound, from)
	}
	i := src.outIndex(to)
	if i < 0 {
		return 0, fmt.Errorf("%w: %v -> %v", ErrEdgeNotFound, from, to)
	}
	return src.out[i].Weight, nil
}

// NodeIDs returns every node identity. Order is not guaranteed.
func (g *Graph[N]) NodeIDs() []N {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes.Keys()
}

// OutgoingEdges iterates over the successors of id and the edge weights, in
// insertion order. It yields nothing for an unknown node. The edges are
// snapshotted, so the graph may be modified during iteration.
func (g *Graph[N]) OutgoingEdges(id N) iter.Seq2[N, float64] {
	g.mu.RLock()
	var out []Edge[N]
	if adj, err := g.nodes.Get(id); err == nil {
		out = append(out, adj.out...)
	}
	g.mu.RUnlock()

	return func(yield func(N, float64) bool) {
		for _, e := range out {
			if !yield(e.To, e.Weight) {
				return
			}
		}
	}
}

// Edges returns every edge in the graph.
func (g *Graph[N]) Edges() []Edge[N] {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := make([]Edge[N], 0, g.edges)
	for _, adj := range g.nodes.All() {
		edges = append(edges, adj.out...)
	}
	return edges
}

// Clear removes every node and edge.
func (g *Graph[N]) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes.Clear()
	g.edges = 0
}
