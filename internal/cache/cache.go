// Package cache holds the explicit cache interface injected into the
// services, plus its redis implementation. The cache is an
// optimization, never a source of truth: misses and invalidation
// failures must never fail a caller.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	// Get returns the stored bytes for key, ErrMiss when absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate removes key.
	Invalidate(ctx context.Context, key string) error
	// InvalidateMany removes a set of keys.
	InvalidateMany(ctx context.Context, keys []string) error
}
