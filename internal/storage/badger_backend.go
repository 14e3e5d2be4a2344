package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/wayfinder-go/internal/graph"
)

// Key prefixes for different data types
const (
	prefixLocation = "n:" // location records
	prefixRoute    = "e:" // route records, keyed from\x00to
)

const keySep = "\x00"

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
	nodeCount   int
	edgeCount   int
	index       *locationIndex
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{index: newLocationIndex()}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR)

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true

	if err := b.rebuildIndexFromDB(); err != nil {
		return fmt.Errorf("rebuilding location index: %w", err)
	}
	return nil
}

// rebuildIndexFromDB recounts records and refills the search index.
func (b *BadgerBackend) rebuildIndexFromDB() error {
	b.index.reset()
	b.nodeCount = 0
	b.edgeCount = 0

	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixLocation)
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			name := strings.TrimPrefix(string(it.Item().Key()), prefixLocation)
			b.index.add(name)
			b.nodeCount++
		}
		it.Close()

		opts = badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixRoute)
		opts.PrefetchValues = false
		it = txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			b.edgeCount++
		}
		return nil
	})
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// BulkLoad replaces the entire store with the contents of the graph.
// Records are encoded up front and written in a single batch that also
// deletes stale keys, so a cancelled or failed load keeps the previous graph.
func (b *BadgerBackend) BulkLoad(ctx context.Context, g *graph.Graph[string]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return ErrNotInitialized
	}

	records, err := encodeGraph(ctx, g)
	if err != nil {
		return err
	}
	stale, err := b.staleKeys(ctx, records)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, rec := range records {
		if err := wb.Set(rec.key, rec.value); err != nil {
			return fmt.Errorf("writing %q: %w", rec.key, err)
		}
	}
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("deleting %q: %w", key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing write batch: %w", err)
	}

	b.index.reset()
	for _, name := range g.NodeIDs() {
		b.index.add(name)
	}
	b.nodeCount = g.NodeCount()
	b.edgeCount = g.EdgeCount()
	return nil
}

type keyValue struct {
	key   []byte
	value []byte
}

// encodeGraph marshals every location and route of g into store records.
func encodeGraph(ctx context.Context, g *graph.Graph[string]) ([]keyValue, error) {
	edges := g.Edges()
	outDegree := make(map[string]int)
	for _, e := range edges {
		outDegree[e.From]++
	}

	records := make([]keyValue, 0, g.NodeCount()+len(edges))
	for _, name := range g.NodeIDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := json.Marshal(LocationRecord{Name: name, OutDegree: outDegree[name]})
		if err != nil {
			return nil, fmt.Errorf("marshaling location: %w", err)
		}
		records = append(records, keyValue{key: locationKey(name), value: data})
	}

	for _, e := range edges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := json.Marshal(RouteRecord{From: e.From, To: e.To, Seconds: e.Weight})
		if err != nil {
			return nil, fmt.Errorf("marshaling route: %w", err)
		}
		records = append(records, keyValue{key: routeKey(e.From, e.To), value: data})
	}
	return records, nil
}

// staleKeys lists the stored keys that records does not overwrite.
func (b *BadgerBackend) staleKeys(ctx context.Context, records []keyValue) ([][]byte, error) {
	keep := make(map[string]struct{}, len(records))
	for _, rec := range records {
		keep[string(rec.key)] = struct{}{}
	}

	var stale [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().KeyCopy(nil)
			if _, ok := keep[string(key)]; !ok {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning stored keys: %w", err)
	}
	return stale, nil
}

// LoadGraph rebuilds the location graph from the store.
func (b *BadgerBackend) LoadGraph(ctx context.Context) (*graph.Graph[string], error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	var (
		locations []string
		routes    []RouteRecord
	)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixLocation)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			locations = append(locations, strings.TrimPrefix(string(it.Item().Key()), prefixLocation))
		}
		it.Close()

		var err error
		routes, err = scanRoutes(ctx, txn, []byte(prefixRoute))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading graph: %w", err)
	}

	return graphFromRecords(locations, routes)
}

// RoutesFrom returns the routes leaving a location, sorted by destination.
func (b *BadgerBackend) RoutesFrom(ctx context.Context, location string) ([]RouteRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	var routes []RouteRecord
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		routes, err = scanRoutes(ctx, txn, []byte(prefixRoute+location+keySep))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading routes from %q: %w", location, err)
	}

	slices.SortFunc(routes, func(a, b RouteRecord) int { return strings.Compare(a.To, b.To) })
	return routes, nil
}

// GetLocation returns the stored record for a location, or nil if absent.
func (b *BadgerBackend) GetLocation(ctx context.Context, name string) (*LocationRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	var rec *LocationRecord
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(locationKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec = &LocationRecord{}
			return json.Unmarshal(val, rec)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location %q: %w", name, err)
	}
	return rec, nil
}

// SearchLocations finds locations whose names match the query.
func (b *BadgerBackend) SearchLocations(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}
	return b.index.search(query, limit), nil
}

// NodeCount returns the number of stored locations.
func (b *BadgerBackend) NodeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nodeCount
}

// EdgeCount returns the number of stored routes.
func (b *BadgerBackend) EdgeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.edgeCount
}

func scanRoutes(ctx context.Context, txn *badger.Txn, prefix []byte) ([]RouteRecord, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var routes []RouteRecord
	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var r RouteRecord
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		}); err != nil {
			return nil, fmt.Errorf("decoding route %q: %w", it.Item().Key(), err)
		}
		routes = append(routes, r)
	}
	return routes, nil
}

func locationKey(name string) []byte {
	return []byte(prefixLocation + name)
}

func routeKey(from, to string) []byte {
	return []byte(prefixRoute + from + keySep + to)
}
