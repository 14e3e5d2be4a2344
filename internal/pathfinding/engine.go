// Package pathfinding computes least-cost routes with Dijkstra's algorithm.
//
// An Engine reads adjacency from a Graph and keeps no state between calls:
// every query allocates its own frontier and cost table, so independent
// queries may run on separate goroutines as long as the graph is not mutated
// meanwhile. Edge weights must be non-negative.
package pathfinding

import (
	"container/heap"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/Benny93/wayfinder-go/internal/hashtable"
)

var (
	// ErrNodeNotFound is returned when an endpoint is absent from the graph.
	ErrNodeNotFound = errors.New("pathfinding: node not found")

	// ErrNoPathExists is returned when the destination cannot be reached.
	ErrNoPathExists = errors.New("pathfinding: no path exists")
)

// Graph is the read-only view of a graph store the engine needs.
type Graph[N comparable] interface {
	ContainsNode(id N) bool
	NodeIDs() []N
	OutgoingEdges(id N) iter.Seq2[N, float64]
}

// CostTable maps node identities to their best finalized cost.
// *hashtable.Map satisfies it.
type CostTable[N comparable] interface {
	Put(key N, value float64) error
	Get(key N) (float64, error)
	Remove(key N) (float64, error)
	ContainsKey(key N) bool
	Size() int
}

// TableFactory creates an empty CostTable for one query.
type TableFactory[N comparable] func() CostTable[N]

// Option configures an Engine.
type Option[N comparable] func(*Engine[N])

// WithTableFactory overrides the cost table used per query.
func WithTableFactory[N comparable](f TableFactory[N]) Option[N] {
	return func(e *Engine[N]) {
		if f != nil {
			e.newTable = f
		}
	}
}

// Path is the result of a shortest-path query.
type Path[N comparable] struct {
	// Nodes lists the identities from start to end, inclusive.
	Nodes []N

	// Legs holds the cost of each hop; len(Legs) == len(Nodes)-1.
	Legs []float64

	// Cost is the total path cost.
	Cost float64
}

// Engine answers shortest-path queries over a Graph.
type Engine[N comparable] struct {
	graph    Graph[N]
	newTable TableFactory[N]
}

// NewEngine creates an engine over g.
func NewEngine[N comparable](g Graph[N], opts ...Option[N]) *Engine[N] {
	e := &Engine[N]{
		graph: g,
		newTable: func() CostTable[N] {
			return hashtable.NewDefault[N, float64]()
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ShortestPath returns the least-cost path from start to end.
func (e *Engine[N]) ShortestPath(start, end N) (*Path[N], error) {
	if err := e.checkNode(start); err != nil {
		return nil, err
	}
	if err := e.checkNode(end); err != nil {
		return nil, err
	}

	found, _, err := e.search(start, &end)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: from %v to %v", ErrNoPathExists, start, end)
	}
	return buildPath(found), nil
}

// PathNodes returns the node identities along the shortest path.
func (e *Engine[N]) PathNodes(start, end N) ([]N, error) {
	p, err := e.ShortestPath(start, end)
	if err != nil {
		return nil, err
	}
	return p.Nodes, nil
}

// PathCost returns the total cost of the shortest path.
func (e *Engine[N]) PathCost(start, end N) (float64, error) {
	p, err := e.ShortestPath(start, end)
	if err != nil {
		return 0, err
	}
	return p.Cost, nil
}

// CostsFrom returns the finalized cost of every node reachable from start,
// including start itself at cost 0.
func (e *Engine[N]) CostsFrom(start N) (CostTable[N], error) {
	if err := e.checkNode(start); err != nil {
		return nil, err
	}
	_, visited, err := e.search(start, nil)
	return visited, err
}

func (e *Engine[N]) checkNode(id N) error {
	var zero N
	if id == zero || !e.graph.ContainsNode(id) {
		return fmt.Errorf("%w: %v", ErrNodeNotFound, id)
	}
	return nil
}

// search runs Dijkstra from start. With a non-nil end it returns the search
// node of the first extraction of *end, or nil if the frontier empties.
func (e *Engine[N]) search(start N, end *N) (*searchNode[N], CostTable[N], error) {
	visited := e.newTable()
	pq := make(frontier[N], 0, 16)
	var seq uint64

	heap.Push(&pq, &searchNode[N]{node: start})

	for pq.Len() > 0 {
		current := heap.Pop(&pq).(*searchNode[N])

		if end != nil && current.node == *end {
			return current, visited, nil
		}

		if best, err := visited.Get(current.node); err == nil {
			if best <= current.cost {
				continue
			}
			if _, err := visited.Remove(current.node); err != nil {
				return nil, nil, fmt.Errorf("updating cost table: %w", err)
			}
		}
		if err := visited.Put(current.node, current.cost); err != nil {
			return nil, nil, fmt.Errorf("updating cost table: %w", err)
		}

		for succ, weight := range e.graph.OutgoingEdges(current.node) {
			newCost := current.cost + weight
			if best, err := visited.Get(succ); err == nil && best <= newCost {
				continue
			}
			seq++
			heap.Push(&pq, &searchNode[N]{
				node:        succ,
				cost:        newCost,
				predecessor: current,
				seq:         seq,
				leg:         weight,
			})
		}
	}

	return nil, visited, nil
}

func buildPath[N comparable](last *searchNode[N]) *Path[N] {
	p := &Path[N]{Cost: last.cost, Legs: []float64{}}
	for n := last; n != nil; n = n.predecessor {
		p.Nodes = append(p.Nodes, n.node)
		if n.predecessor != nil {
			p.Legs = append(p.Legs, n.leg)
		}
	}
	slices.Reverse(p.Nodes)
	slices.Reverse(p.Legs)
	return p
}
