// Package memory is an in-process db.Store for single-node deployments and tests.
package memory

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kailas-cloud/flagdeck/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultCleanupInterval is how often expired keys are purged.
const DefaultCleanupInterval = time.Minute

// Store keeps values in process memory with optional per-key TTL.
type Store struct {
	items  *gocache.Cache
	closed atomic.Bool
}

// NewStore creates an in-memory store. cleanup <= 0 uses DefaultCleanupInterval.
func NewStore(cleanup time.Duration) *Store {
	if cleanup <= 0 {
		cleanup = DefaultCleanupInterval
	}
	return &Store{items: gocache.New(gocache.NoExpiration, cleanup)}
}

// Ping reports ErrClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	if s.closed.Load() {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// Close drops all keys.
func (s *Store) Close() {
	s.closed.Store(true)
	s.items.Flush()
}

// WaitForReady returns immediately: the store is ready once created.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Get retrieves a copy of the value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	v, ok := s.items.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	data, _ := v.([]byte)
	return clone(data), nil
}

// SetWithTTL stores a value with an expiration. A non-positive ttl stores without expiry.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.items.Set(key, clone(value), ttl)
	return nil
}

// Del deletes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}
	s.items.Delete(key)
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
