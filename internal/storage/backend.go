// Package storage provides the storage backend interface for Wayfinder.
//
// It defines the StorageBackend protocol that all storage implementations
// must satisfy, along with the records they persist. Only the location graph
// is stored; computed paths never are.
package storage

import (
	"context"
	"errors"

	"github.com/Benny93/wayfinder-go/internal/graph"
)

// ErrNotInitialized is returned when a backend is used before Initialize.
var ErrNotInitialized = errors.New("storage: backend not initialized")

// LocationRecord is the persisted form of a location.
type LocationRecord struct {
	// Name is the location identity.
	Name string `json:"name"`

	// OutDegree is the number of routes leaving the location.
	OutDegree int `json:"out_degree"`
}

// RouteRecord is the persisted form of a directed route.
type RouteRecord struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Seconds float64 `json:"seconds"`
}

// SearchResult represents a location search hit.
type SearchResult struct {
	// Name is the matching location.
	Name string

	// Score is the relevance score (higher is better).
	Score float64
}

// StorageBackend defines the interface for storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type StorageBackend interface {
	// Initialize opens or creates the storage backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// BulkLoad replaces the entire store with the contents of the graph.
	BulkLoad(ctx context.Context, g *graph.Graph[string]) error

	// LoadGraph rebuilds the location graph from the store.
	LoadGraph(ctx context.Context) (*graph.Graph[string], error)

	// RoutesFrom returns the routes leaving a location, sorted by destination.
	RoutesFrom(ctx context.Context, location string) ([]RouteRecord, error)

	// SearchLocations finds locations whose names match the query.
	SearchLocations(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// NodeCount returns the number of stored locations.
	NodeCount() int

	// EdgeCount returns the number of stored routes.
	EdgeCount() int
}

// graphFromRecords builds a graph from stored records.
func graphFromRecords(locations []string, routes []RouteRecord) (*graph.Graph[string], error) {
	g := graph.New[string]()
	for _, name := range locations {
		if _, err := g.InsertNode(name); err != nil {
			return nil, err
		}
	}
	for _, r := range routes {
		if err := g.InsertEdge(r.From, r.To, r.Seconds); err != nil {
			return nil, err
		}
	}
	return g, nil
}
