package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisStore implements Store on Redis, sharing counters across processes.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisClock overrides the time source used to compute absolute window
// expiries from Redis TTLs. Intended for tests.
func WithRedisClock(now func() time.Time) RedisStoreOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedisStore creates a Redis-backed store.
// Panics when client is nil to surface wiring mistakes at startup.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	if client == nil {
		panic("ratelimit: redis client is required")
	}
	s := &RedisStore{
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Incr increments the key's counter and ensures the window TTL is set
// exactly once per window. The increment and the TTL are applied in one
// transaction so a crash between them cannot leave an immortal counter.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	k := redisKeyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}

	return incr.Val(), s.resetFromTTL(pttl.Val(), window), nil
}

// Peek returns the counter and expiry without incrementing.
func (s *RedisStore) Peek(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	k := redisKeyPrefix + key

	pipe := s.client.TxPipeline()
	get := pipe.Get(ctx, k)
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}

	count, err := get.Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, s.now().Add(window), nil
		}
		return 0, time.Time{}, fmt.Errorf("%w: unexpected counter value: %w", ErrStoreUnavailable, err)
	}

	return count, s.resetFromTTL(pttl.Val(), window), nil
}

// Reset removes the key's counter.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// resetFromTTL converts a PTTL reply to an absolute expiry, falling back to
// a full window when the key has no TTL (-1) or vanished mid-pipeline (-2).
func (s *RedisStore) resetFromTTL(ttl, window time.Duration) time.Time {
	if ttl <= 0 {
		ttl = window
	}
	return s.now().Add(ttl)
}
