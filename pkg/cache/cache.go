// Package cache stores raw package index responses between runs.
//
// Three backends implement [Cache]: [FileCache] (the default, under the
// user cache directory), [RedisCache] (a shared cache for build hosts) and
// [NullCache] (caching disabled). Keys are built with [Key] so that every
// backend sees the same fixed-length names.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss. Expired
	// entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
