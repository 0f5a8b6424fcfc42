package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/plankit/pkg/billing"
)

// RedisGuard shares the seen set across instances through Redis. SETNX is
// the atomic check-and-mark; the key TTL doubles as the retention window,
// so pruning happens automatically on the server side.
type RedisGuard struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewRedisGuard creates a Redis-backed idempotency guard. Retention must
// exceed the provider's maximum redelivery interval.
func NewRedisGuard(client redis.UniversalClient, retention time.Duration) *RedisGuard {
	return &RedisGuard{
		client:    client,
		retention: retention,
	}
}

func (g *RedisGuard) Admit(ctx context.Context, provider billing.Provider, eventID string) (bool, error) {
	if eventID == "" {
		return false, ErrEmptyEventID
	}

	novel, err := g.client.SetNX(ctx, g.key(provider, eventID), 1, g.retention).Result()
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	return novel, nil
}

// Prune is a no-op: Redis expires keys by TTL.
func (g *RedisGuard) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

func (g *RedisGuard) key(provider billing.Provider, eventID string) string {
	return fmt.Sprintf("webhook:seen:%s:%s", provider, eventID)
}
