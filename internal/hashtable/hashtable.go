// Package hashtable provides a generic chained hash map for Wayfinder.
//
// Map resolves collisions by chaining entries in per-bucket slices and grows
// by doubling its bucket array once the load factor reaches
// LoadFactorThreshold. It backs node lookup in the graph store and the
// per-query cost tables of the path engine.
//
// The zero value of the key type is treated as the absent key: Put rejects
// it and ContainsKey reports false for it.
//
// Map is not safe for concurrent mutation; callers synchronise externally.
package hashtable

import (
	"errors"
	"fmt"
	"hash/maphash"
	"iter"
)

const (
	// DefaultCapacity is the bucket count used by NewDefault.
	DefaultCapacity = 64

	// LoadFactorThreshold is the size/capacity ratio that triggers a resize.
	LoadFactorThreshold = 0.8
)

var (
	// ErrInvalidArgument is returned when the zero-value key is supplied.
	ErrInvalidArgument = errors.New("hashtable: key must not be the zero value")

	// ErrDuplicateKey is returned by Put when the key is already stored.
	ErrDuplicateKey = errors.New("hashtable: duplicate key")

	// ErrKeyNotFound is returned by Get and Remove for absent keys.
	ErrKeyNotFound = errors.New("hashtable: key not found")

	// ErrInvalidCapacity is returned for a non-positive initial capacity.
	ErrInvalidCapacity = errors.New("hashtable: capacity must be positive")
)

// Hasher maps a key to an unsigned hash.
type Hasher[K comparable] func(key K) uint64

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Map is a hash map with separate chaining.
type Map[K comparable, V any] struct {
	buckets [][]entry[K, V]
	size    int
	hash    Hasher[K]
}

// New creates a map with the given number of buckets.
func New[K comparable, V any](capacity int) (*Map[K, V], error) {
	return NewWithHasher[K, V](capacity, nil)
}

// NewDefault creates a map with DefaultCapacity buckets.
func NewDefault[K comparable, V any]() *Map[K, V] {
	m, _ := NewWithHasher[K, V](DefaultCapacity, nil)
	return m
}

// NewWithHasher creates a map that uses h for bucket selection.
// A nil h selects the runtime hash for comparable keys.
func NewWithHasher[K comparable, V any](capacity int, h Hasher[K]) (*Map[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if h == nil {
		seed := maphash.MakeSeed()
		h = func(key K) uint64 {
			return maphash.Comparable(seed, key)
		}
	}
	return &Map[K, V]{
		buckets: make([][]entry[K, V], capacity),
		hash:    h,
	}, nil
}

// Put stores value under key. The map is left unchanged on error.
func (m *Map[K, V]) Put(key K, value V) error {
	if isZero(key) {
		return ErrInvalidArgument
	}

	idx := m.bucketIndex(key, len(m.buckets))
	for _, e := range m.buckets[idx] {
		if e.key == key {
			return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
		}
	}

	m.buckets[idx] = append(m.buckets[idx], entry[K, V]{key: key, value: value})
	m.size++

	if m.LoadFactor() >= LoadFactorThreshold {
		m.resize(len(m.buckets) * 2)
	}
	return nil
}

// ContainsKey reports whether key is stored. The zero-value key is never stored.
func (m *Map[K, V]) ContainsKey(key K) bool {
	if isZero(key) {
		return false
	}
	_, ok := m.find(key)
	return ok
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, error) {
	e, ok := m.find(key)
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}
	return e.value, nil
}

// Remove deletes key and returns the value it held.
func (m *Map[K, V]) Remove(key K) (V, error) {
	var zero V
	if isZero(key) {
		return zero, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}

	idx := m.bucketIndex(key, len(m.buckets))
	bucket := m.buckets[idx]
	for i, e := range bucket {
		if e.key != key {
			continue
		}
		last := len(bucket) - 1
		bucket[i] = bucket[last]
		bucket[last] = entry[K, V]{}
		m.buckets[idx] = bucket[:last]
		m.size--
		return e.value, nil
	}
	return zero, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
}

// Clear removes every entry. Capacity is unchanged.
func (m *Map[K, V]) Clear() {
	clear(m.buckets)
	m.size = 0
}

// Size returns the number of stored entries.
func (m *Map[K, V]) Size() int {
	return m.size
}

// Capacity returns the number of buckets.
func (m *Map[K, V]) Capacity() int {
	return len(m.buckets)
}

// LoadFactor returns size divided by capacity.
func (m *Map[K, V]) LoadFactor() float64 {
	return float64(m.size) / float64(len(m.buckets))
}

// Keys returns every stored key in an unspecified order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.size)
	for k := range m.All() {
		keys = append(keys, k)
	}
	return keys
}

// All iterates over the stored entries in an unspecified order.
// The map must not be mutated during iteration.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, bucket := range m.buckets {
			for _, e := range bucket {
				if !yield(e.key, e.value) {
					return
				}
			}
		}
	}
}

func (m *Map[K, V]) find(key K) (entry[K, V], bool) {
	for _, e := range m.buckets[m.bucketIndex(key, len(m.buckets))] {
		if e.key == key {
			return e, true
		}
	}
	return entry[K, V]{}, false
}

// bucketIndex is always in [0, capacity) since the hash is unsigned.
func (m *Map[K, V]) bucketIndex(key K, capacity int) int {
	return int(m.hash(key) % uint64(capacity))
}

func (m *Map[K, V]) resize(capacity int) {
	buckets := make([][]entry[K, V], capacity)
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			idx := m.bucketIndex(e.key, capacity)
			buckets[idx] = append(buckets[idx], e)
		}
	}
	m.buckets = buckets
}

func isZero[K comparable](key K) bool {
	var zero K
	return key == zero
}
