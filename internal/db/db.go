// Package db defines the storage facade behind the image cache.
// Drivers live in subpackages: memory for a single node, redis for Redis or Valkey.
package db

import (
	"context"
	"time"
)

// Store is a byte-blob store with per-key expiry.
type Store interface {
	BlobStore
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// BlobStore holds opaque values. A non-positive ttl stores without expiry.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
