// Package cache holds the key/value stores that back cached document reads.
package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented key/value cache with per-entry expiry.
//
// Get reports a miss as (nil, false, nil). Any returned error means the
// cache could not be consulted, which is distinct from a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}
