// Package counter provides the expiring usage counter stores backing the
// usage limiter.
package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nurture/pkg/sentinel"
)

// RedisStore is the production counter store. Redis INCR gives the atomic
// single-round-trip increment the limiter contract requires; two concurrent
// increments of the same key can never observe the same value.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed counter store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Increment atomically increments the key and sets its TTL if the key does
// not already have one, so the window is measured from the first increment.
// Both commands run in one pipeline round trip.
func (s *RedisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: increment %s: %v", sentinel.ErrUnavailable, key, err)
	}
	return incr.Val(), nil
}

// Get returns the current value, or zero for an absent or expired key.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get %s: %v", sentinel.ErrUnavailable, key, err)
	}
	return val, nil
}
