package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/plankit/pkg/billing"
)

type seenKey struct {
	provider billing.Provider
	eventID  string
}

// MemoryGuard is an in-process Guard backed by a mutex-protected map.
// Suitable for tests and single-instance deployments; multi-instance
// deployments need the Postgres or Redis guard to share the seen set.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[seenKey]time.Time

	now func() time.Time
}

// MemoryGuardOption configures a MemoryGuard.
type MemoryGuardOption func(*MemoryGuard)

// WithClock overrides the time source, used by tests to control pruning.
func WithClock(now func() time.Time) MemoryGuardOption {
	return func(g *MemoryGuard) {
		if now != nil {
			g.now = now
		}
	}
}

// NewMemoryGuard creates an in-memory idempotency guard.
func NewMemoryGuard(opts ...MemoryGuardOption) *MemoryGuard {
	g := &MemoryGuard{
		seen: make(map[seenKey]time.Time),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit checks and marks the event in one critical section, so two
// concurrent deliveries of the same event cannot both pass.
func (g *MemoryGuard) Admit(ctx context.Context, provider billing.Provider, eventID string) (bool, error) {
	if eventID == "" {
		return false, ErrEmptyEventID
	}

	key := seenKey{provider: provider, eventID: eventID}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, dup := g.seen[key]; dup {
		return false, nil
	}
	g.seen[key] = g.now().UTC()
	return true, nil
}

// Prune drops entries older than the retention window.
func (g *MemoryGuard) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := g.now().UTC().Add(-retention)

	g.mu.Lock()
	defer g.mu.Unlock()

	var removed int64
	for key, seenAt := range g.seen {
		if seenAt.Before(cutoff) {
			delete(g.seen, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of tracked events, used by tests and metrics.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
