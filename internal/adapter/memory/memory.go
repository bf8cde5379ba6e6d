// Package memory implements an in-memory backend for development and testing.
package memory

import (
	"context"
	"sync"

	"cura/internal/domain"
)

// DB is a map-backed domain.Backend. Nothing survives a restart.
type DB struct {
	mu      sync.Mutex
	records map[string][]byte
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{records: make(map[string][]byte)}
}

// Ensure interfaces are met.
var _ domain.Backend = (*DB)(nil)

// Load returns a copy of the record stored under key.
func (db *DB) Load(ctx context.Context, key string) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	v, ok := db.records[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Save replaces the record stored under key.
func (db *DB) Save(ctx context.Context, key string, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.records[key] = append([]byte(nil), value...)
	return nil
}

// Keys returns the number of stored records.
func (db *DB) Keys() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.records)
}
