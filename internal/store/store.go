// Package store persists whole JSON documents under string keys.
//
// Reads never fail: missing or undecodable records yield the caller's default.
// Writes never fail either: the in-memory copy is updated first and stays
// authoritative for the life of the process even when the backend rejects the
// flush.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"cura/internal/domain"
)

// Store is a JSON document cache in front of a domain.Backend.
type Store struct {
	mu      sync.Mutex
	backend domain.Backend
	log     *slog.Logger
	mem     map[string][]byte
}

// New creates a Store flushing to backend. A nil logger uses slog.Default.
func New(backend domain.Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: backend,
		log:     logger,
		mem:     make(map[string][]byte),
	}
}

// Get decodes the record under key into a T, returning def when the record is
// missing, unreadable or of an incompatible shape.
func Get[T any](ctx context.Context, s *Store, key string, def T) T {
	raw, ok := s.load(ctx, key)
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Warn("store: decode failed, using default", "key", key, "error", err)
		s.forget(key)
		return def
	}
	return v
}

// Set records v under key and attempts a flush to the backend.
func Set[T any](ctx context.Context, s *Store, key string, v T) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error("store: encode failed", "key", key, "error", err)
		return
	}

	s.mu.Lock()
	s.mem[key] = raw
	s.mu.Unlock()

	if err := s.backend.Save(ctx, key, raw); err != nil {
		s.log.Error("store: flush failed, change is not durable", "key", key, "error", err)
	}
}

func (s *Store) load(ctx context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	raw, ok := s.mem[key]
	s.mu.Unlock()
	if ok {
		return raw, true
	}

	raw, err := s.backend.Load(ctx, key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		s.log.Debug("store: no record, using default", "key", key)
		return nil, false
	}
	if err != nil {
		s.log.Warn("store: read failed, using default", "key", key, "error", err)
		return nil, false
	}

	s.mu.Lock()
	s.mem[key] = raw
	s.mu.Unlock()
	return raw, true
}

func (s *Store) forget(key string) {
	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()
}
