// Package db defines the key-value store contract backing the embedding
// cache. The only implementation is Redis via rueidis; consumers depend
// on the narrow interfaces here, not on the client.
package db

import (
	"context"
	"time"
)

// KVStore provides key-value operations with expiry. Every write in
// this service is a cache entry, so writes always carry a TTL.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is the full cache store facade.
type Store interface {
	KVStore
	Pinger
	Close()
}
