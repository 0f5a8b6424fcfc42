package subscription_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/plankit/pkg/billing"
	"github.com/dmitrymomot/plankit/pkg/idempotency"
	"github.com/dmitrymomot/plankit/pkg/subscription"
)

func newTestService(t *testing.T, store subscription.Store, users map[string]uuid.UUID) *subscription.Service {
	t.Helper()

	resolve := func(ctx context.Context, email string) (uuid.UUID, error) {
		if id, ok := users[email]; ok {
			return id, nil
		}
		return uuid.Nil, subscription.ErrRecordNotFound
	}

	return subscription.NewService(idempotency.NewMemoryGuard(), store, resolve)
}

func TestService_Process(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	users := map[string]uuid.UUID{"user@example.com": userID}
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("applies novel event", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		svc := newTestService(t, store, users)

		record, err := svc.Process(ctx, eventAt(t0, billing.EventSubscriptionCreated, "sub_1", billing.TierPro, "active"))
		require.NoError(t, err)
		assert.Equal(t, billing.TierPro, record.Tier)

		persisted, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, billing.TierPro, persisted.Tier)
		assert.Equal(t, subscription.StatusActive, persisted.Status)
	})

	t.Run("redelivery is a no-op", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		svc := newTestService(t, store, users)

		event := eventAt(t0, billing.EventSubscriptionCreated, "sub_1", billing.TierPro, "active")
		_, err := svc.Process(ctx, event)
		require.NoError(t, err)

		_, err = svc.Process(ctx, event)
		require.ErrorIs(t, err, subscription.ErrDuplicateEvent)

		persisted, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, event.EventID, persisted.LastEventID)
	})

	t.Run("concurrent deliveries of one event apply once", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		svc := newTestService(t, store, users)

		event := eventAt(t0, billing.EventSubscriptionCreated, "sub_1", billing.TierPro, "active")

		var applied, duplicates int
		var mu sync.Mutex
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Process(ctx, event)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					applied++
				default:
					require.ErrorIs(t, err, subscription.ErrDuplicateEvent)
					duplicates++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, applied)
		assert.Equal(t, 19, duplicates)
	})

	t.Run("unresolved user flagged, not retried", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		svc := newTestService(t, store, users)

		event := eventAt(t0, billing.EventSubscriptionCreated, "sub_9", billing.TierPro, "active")
		event.CustomerEmail = "stranger@example.com"

		_, err := svc.Process(ctx, event)
		require.ErrorIs(t, err, subscription.ErrUnresolvedUser)
	})
}

// The §8-style lifecycle: create, redeliver, cancel, then a stray stale
// redelivery that must not revert the cancellation.
func TestService_Lifecycle(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	users := map[string]uuid.UUID{"user@example.com": userID}
	store := subscription.NewMemoryStore()
	svc := newTestService(t, store, users)

	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	created := eventAt(t0.Add(100*time.Second), billing.EventSubscriptionCreated, "sub_1", billing.TierPro, "active")

	_, err := svc.Process(ctx, created)
	require.NoError(t, err)

	// Identical redelivery shortly after: absorbed by the guard.
	_, err = svc.Process(ctx, created)
	require.ErrorIs(t, err, subscription.ErrDuplicateEvent)

	record, err := svc.GetRecord(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, billing.TierPro, record.Tier)
	assert.Equal(t, subscription.StatusActive, record.Status)

	cancelled := eventAt(t0.Add(200*time.Second), billing.EventSubscriptionCancelled, "sub_1", billing.TierPro, "cancelled")
	_, err = svc.Process(ctx, cancelled)
	require.NoError(t, err)

	record, err = svc.GetRecord(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, billing.TierFree, record.Tier)
	assert.Equal(t, subscription.StatusCancelled, record.Status)

	// A stale copy of the creation under a fresh event id: rejected by
	// ordering, not by the guard.
	stale := *created
	stale.EventID = uuid.NewString()
	_, err = svc.Process(ctx, &stale)
	require.ErrorIs(t, err, subscription.ErrStaleEvent)

	record, err = svc.GetRecord(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, billing.TierFree, record.Tier)
	assert.Equal(t, subscription.StatusCancelled, record.Status)
}

func TestService_GetRecord_DefaultsToFree(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, subscription.NewMemoryStore(), nil)

	record, err := svc.GetRecord(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, billing.TierFree, record.Tier)
	assert.Equal(t, subscription.StatusNone, record.Status)
}

func TestService_DifferentUsersProceedInParallel(t *testing.T) {
	t.Parallel()

	users := make(map[string]uuid.UUID)
	emails := make([]string, 0, 10)
	for i := range 10 {
		email := string(rune('a'+i)) + "@example.com"
		users[email] = uuid.New()
		emails = append(emails, email)
	}

	store := subscription.NewMemoryStore()
	svc := newTestService(t, store, users)

	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i, email := range emails {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := eventAt(t0, billing.EventSubscriptionCreated, uuid.NewString(), billing.TierPro, "active")
			event.CustomerEmail = email
			event.EventID = uuid.NewString()
			_, err := svc.Process(ctx, event)
			assert.NoError(t, err, "user %d", i)
		}()
	}
	wg.Wait()

	for _, email := range emails {
		record, err := store.Get(ctx, users[email])
		require.NoError(t, err)
		assert.Equal(t, billing.TierPro, record.Tier)
	}
}
