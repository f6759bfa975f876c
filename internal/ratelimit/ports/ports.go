// Package ports defines shared interfaces for the ratelimit module.
package ports

import (
	"context"
	"time"
)

// CounterStore manages expiring usage counters. Implementations must make
// Increment atomic with respect to concurrent increments of the same key:
// a single round-trip increment, never read-then-write.
type CounterStore interface {
	// Increment adds one to the counter, setting its TTL on first write,
	// and returns the new value.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the current counter value; zero if the key is absent or
	// expired.
	Get(ctx context.Context, key string) (int64, error)
}
