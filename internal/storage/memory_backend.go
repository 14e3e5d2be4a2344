package storage

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Benny93/wayfinder-go/internal/graph"
)

// MemoryBackend is an in-memory implementation of StorageBackend for testing.
type MemoryBackend struct {
	mu        sync.RWMutex
	locations map[string]struct{}
	routes    map[string][]RouteRecord
	edges     int
	index     *locationIndex
	indexed   bool
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		locations: make(map[string]struct{}),
		routes:    make(map[string][]RouteRecord),
		index:     newLocationIndex(),
	}
}

// Initialize implements StorageBackend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = true
	return nil
}

// Close implements StorageBackend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = make(map[string]struct{})
	m.routes = make(map[string][]RouteRecord)
	m.edges = 0
	m.index.reset()
	m.indexed = false
	return nil
}

// BulkLoad implements StorageBackend. The new state is built aside and
// swapped in only when ctx is still live.
func (m *MemoryBackend) BulkLoad(ctx context.Context, g *graph.Graph[string]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	locations := make(map[string]struct{})
	routes := make(map[string][]RouteRecord)
	index := newLocationIndex()
	edges := 0
	for _, name := range g.NodeIDs() {
		locations[name] = struct{}{}
		index.add(name)
	}
	for _, e := range g.Edges() {
		routes[e.From] = append(routes[e.From], RouteRecord{From: e.From, To: e.To, Seconds: e.Weight})
		edges++
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = locations
	m.routes = routes
	m.edges = edges
	m.index = index
	m.indexed = true
	return nil
}

// LoadGraph implements StorageBackend.
func (m *MemoryBackend) LoadGraph(ctx context.Context) (*graph.Graph[string], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.indexed {
		return nil, ErrNotInitialized
	}

	names := make([]string, 0, len(m.locations))
	for name := range m.locations {
		names = append(names, name)
	}
	var routes []RouteRecord
	for _, rs := range m.routes {
		routes = append(routes, rs...)
	}
	// Match the key order of the badger backend.
	slices.Sort(names)
	slices.SortFunc(routes, func(a, b RouteRecord) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	return graphFromRecords(names, routes)
}

// RoutesFrom implements StorageBackend.
func (m *MemoryBackend) RoutesFrom(ctx context.Context, location string) ([]RouteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	routes := slices.Clone(m.routes[location])
	slices.SortFunc(routes, func(a, b RouteRecord) int { return strings.Compare(a.To, b.To) })
	return routes, nil
}

// SearchLocations implements StorageBackend.
func (m *MemoryBackend) SearchLocations(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.search(query, limit), nil
}

// NodeCount implements StorageBackend.
func (m *MemoryBackend) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.locations)
}

// EdgeCount implements StorageBackend.
func (m *MemoryBackend) EdgeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.edges
}

// IsIndexed reports whether a graph has been loaded.
func (m *MemoryBackend) IsIndexed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexed
}
