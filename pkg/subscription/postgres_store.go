package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/plankit/pkg/billing"
	"github.com/dmitrymomot/plankit/pkg/pg"
)

// PostgresStore persists records in the subscriptions table, one row per
// user. The schema is applied by the subscriptions migration.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed record store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	var record Record
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, tier, status, provider, provider_sub_id, last_event_id, updated_at
		 FROM subscriptions WHERE user_id = $1`,
		userID,
	).Scan(
		&record.UserID, &record.Tier, &record.Status, &record.Provider,
		&record.ProviderSubID, &record.LastEventID, &record.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return &record, nil
}

func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscriptions (user_id, tier, status, provider, provider_sub_id, last_event_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			status = EXCLUDED.status,
			provider = EXCLUDED.provider,
			provider_sub_id = EXCLUDED.provider_sub_id,
			last_event_id = EXCLUDED.last_event_id,
			updated_at = EXCLUDED.updated_at`,
		record.UserID, string(record.Tier), string(record.Status), string(record.Provider),
		record.ProviderSubID, record.LastEventID, record.UpdatedAt,
	)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *PostgresStore) ListOverdue(ctx context.Context, updatedBefore time.Time) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, tier, status, provider, provider_sub_id, last_event_id, updated_at
		 FROM subscriptions
		 WHERE (status IN ('trialing', 'past_due') AND updated_at < $1)
		    OR (status IN ('none', 'cancelled', 'expired') AND tier <> $2)`,
		updatedBefore, string(billing.TierFree),
	)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	defer rows.Close()

	var overdue []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(
			&record.UserID, &record.Tier, &record.Status, &record.Provider,
			&record.ProviderSubID, &record.LastEventID, &record.UpdatedAt,
		); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		overdue = append(overdue, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return overdue, nil
}
