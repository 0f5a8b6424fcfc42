package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/plankit/pkg/billing"
)

// PostgresGuard persists the seen set in the webhook_events table. The
// (provider, event_id) primary key makes the insert itself the atomic
// check-and-mark: ON CONFLICT DO NOTHING reports zero affected rows for a
// duplicate without raising an error.
type PostgresGuard struct {
	pool *pgxpool.Pool
}

// NewPostgresGuard creates a Postgres-backed idempotency guard.
// The schema is applied by the webhook_events migration.
func NewPostgresGuard(pool *pgxpool.Pool) *PostgresGuard {
	return &PostgresGuard{pool: pool}
}

func (g *PostgresGuard) Admit(ctx context.Context, provider billing.Provider, eventID string) (bool, error) {
	if eventID == "" {
		return false, ErrEmptyEventID
	}

	tag, err := g.pool.Exec(ctx,
		`INSERT INTO webhook_events (provider, event_id, received_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (provider, event_id) DO NOTHING`,
		string(provider), eventID,
	)
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (g *PostgresGuard) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := g.pool.Exec(ctx,
		`DELETE FROM webhook_events WHERE received_at < now() - ($1 * interval '1 second')`,
		int64(retention.Seconds()),
	)
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
