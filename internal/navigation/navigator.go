// Package navigation answers route questions over a loaded location graph.
//
// A Navigator wraps the location graph and a path engine. It returns full
// routes with per-hop travel times and finds the destination that is
// reachable from a set of start locations in the least summed time.
package navigation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Benny93/wayfinder-go/internal/graph"
	"github.com/Benny93/wayfinder-go/internal/pathfinding"
)

var (
	// ErrNoStartLocations is returned when a closest-destination query has no starts.
	ErrNoStartLocations = errors.New("navigation: no start locations given")

	// ErrEmptyGraph is returned when no locations are loaded.
	ErrEmptyGraph = errors.New("navigation: no locations loaded")
)

// Route is a shortest path between two locations.
type Route struct {
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Locations []string  `json:"locations"`
	Times     []float64 `json:"times"`
	Total     float64   `json:"total"`
}

// Destination is the answer to a closest-destination query.
type Destination struct {
	// Name is the chosen location.
	Name string `json:"name"`

	// Starts lists the start locations in query order.
	Starts []string `json:"starts"`

	// Times holds the travel time from each start, aligned with Starts.
	Times []float64 `json:"times"`

	// Total is the summed travel time.
	Total float64 `json:"total"`
}

// Leg is a single directed route between two adjacent locations.
type Leg struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Seconds float64 `json:"seconds"`
}

// Stats summarises the loaded graph.
type Stats struct {
	Locations int `json:"locations"`
	Routes    int `json:"routes"`
}

// Navigator answers route queries. Queries hold a read lock; Replace swaps
// the graph under the write lock.
type Navigator struct {
	mu     sync.RWMutex
	graph  *graph.Graph[string]
	engine *pathfinding.Engine[string]
}

// New creates a navigator over g. A nil g starts with an empty graph.
func New(g *graph.Graph[string]) *Navigator {
	n := &Navigator{}
	n.Replace(g)
	return n
}

// Replace swaps in a newly loaded graph.
func (n *Navigator) Replace(g *graph.Graph[string]) {
	if g == nil {
		g = graph.New[string]()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.graph = g
	n.engine = pathfinding.NewEngine[string](g)
}

// Stats returns location and route counts.
func (n *Navigator) Stats() Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return Stats{Locations: n.graph.NodeCount(), Routes: n.graph.EdgeCount()}
}

// Locations returns every location name, sorted.
func (n *Navigator) Locations() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := n.graph.NodeIDs()
	slices.Sort(names)
	return names
}

// RoutesFrom returns the routes leaving a location, sorted by destination.
func (n *Navigator) RoutesFrom(location string) ([]Leg, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if !n.graph.ContainsNode(location) {
		return nil, fmt.Errorf("%w: %s", pathfinding.ErrNodeNotFound, location)
	}

	var legs []Leg
	for to, w := range n.graph.OutgoingEdges(location) {
		legs = append(legs, Leg{From: location, To: to, Seconds: w})
	}
	slices.SortFunc(legs, func(a, b Leg) int { return strings.Compare(a.To, b.To) })
	return legs, nil
}

// Route returns the shortest route from start to end.
func (n *Navigator) Route(start, end string) (*Route, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	path, err := n.engine.ShortestPath(start, end)
	if err != nil {
		return nil, err
	}

	return &Route{
		Start:     start,
		End:       end,
		Locations: path.Nodes,
		Times:     path.Legs,
		Total:     path.Cost,
	}, nil
}

// LocationsOnShortestPath returns the locations along the shortest path.
func (n *Navigator) LocationsOnShortestPath(start, end string) ([]string, error) {
	r, err := n.Route(start, end)
	if err != nil {
		return nil, err
	}
	return r.Locations, nil
}

// TimesOnShortestPath returns the travel time of each hop on the shortest path.
func (n *Navigator) TimesOnShortestPath(start, end string) ([]float64, error) {
	r, err := n.Route(start, end)
	if err != nil {
		return nil, err
	}
	return r.Times, nil
}

// ClosestDestinationFromAll returns the location with the least summed
// travel time from every start. Locations that some start cannot reach are
// not candidates. Ties go to the alphabetically first name.
func (n *Navigator) ClosestDestinationFromAll(starts []string) (*Destination, error) {
	if len(starts) == 0 {
		return nil, ErrNoStartLocations
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.graph.NodeCount() == 0 {
		return nil, ErrEmptyGraph
	}

	tables := make([]pathfinding.CostTable[string], len(starts))
	for i, s := range starts {
		costs, err := n.engine.CostsFrom(s)
		if err != nil {
			return nil, fmt.Errorf("start location %q: %w", s, err)
		}
		tables[i] = costs
	}

	candidates := n.graph.NodeIDs()
	slices.Sort(candidates)

	var best *Destination
	for _, name := range candidates {
		times := make([]float64, len(starts))
		total := 0.0
		reachable := true
		for i, costs := range tables {
			c, err := costs.Get(name)
			if err != nil {
				reachable = false
				break
			}
			times[i] = c
			total += c
		}
		if !reachable {
			continue
		}
		if best == nil || total < best.Total {
			best = &Destination{
				Name:   name,
				Starts: slices.Clone(starts),
				Times:  times,
				Total:  total,
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no location is reachable from all of %v", pathfinding.ErrNoPathExists, starts)
	}
	return best, nil
}
