package subscription_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/plankit/pkg/billing"
	"github.com/dmitrymomot/plankit/pkg/subscription"
)

func eventAt(t time.Time, eventType billing.EventType, subID string, tier billing.Tier, status string) *billing.Event {
	return &billing.Event{
		Provider:      billing.ProviderLemonSqueezy,
		EventID:       uuid.NewString(),
		Type:          eventType,
		CustomerEmail: "user@example.com",
		SubID:         subID,
		PlanID:        "501",
		Status:        status,
		Tier:          tier,
		OccurredAt:    t,
	}
}

func TestApply_Creation(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	record := subscription.NewRecord(userID)
	updated, err := subscription.Apply(record,
		eventAt(now, billing.EventSubscriptionCreated, "sub_1", billing.TierPro, "active"))
	require.NoError(t, err)

	assert.Equal(t, userID, updated.UserID)
	assert.Equal(t, billing.TierPro, updated.Tier)
	assert.Equal(t, subscription.StatusActive, updated.Status)
	assert.Equal(t, billing.ProviderLemonSqueezy, updated.Provider)
	assert.Equal(t, "sub_1", updated.ProviderSubID)
	assert.Equal(t, now, updated.UpdatedAt)

	// Input record is untouched.
	assert.Equal(t, subscription.StatusNone, record.Status)
}

func TestApply_Transitions(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		event      *billing.Event
		wantTier   billing.Tier
		wantStatus subscription.Status
	}{
		{
			name:       "trial start",
			event:      eventAt(base.Add(time.Hour), billing.EventSubscriptionCreated, "sub_1", billing.TierPro, "on_trial"),
			wantTier:   billing.TierPro,
			wantStatus: subscription.StatusTrialing,
		},
		{
			name:       "payment failure moves to past due",
			event:      eventAt(base.Add(time.Hour), billing.EventSubscriptionUpdated, "sub_1", billing.TierPro, "past_due"),
			wantTier:   billing.TierPro,
			wantStatus: subscription.StatusPastDue,
		},
		{
			name:       "upgrade refreshes tier",
			event:      eventAt(base.Add(time.Hour), billing.EventSubscriptionUpdated, "sub_1", billing.TierPremium, "active"),
			wantTier:   billing.TierPremium,
			wantStatus: subscription.StatusActive,
		},
		{
			name:       "update with expired status downgrades to free",
			event:      eventAt(base.Add(time.Hour), billing.EventSubscriptionUpdated, "sub_1", billing.TierPro, "expired"),
			wantTier:   billing.TierFree,
			wantStatus: subscription.StatusExpired,
		},
		{
			name:       "cancellation downgrades to free",
			event:      eventAt(base.Add(time.Hour), billing.EventSubscriptionCancelled, "sub_1", billing.TierPro, "cancelled"),
			wantTier:   billing.TierFree,
			wantStatus: subscription.StatusCancelled,
		},
		{
			name:       "cancellation without provider status still terminates",
			event:      eventAt(base.Add(time.Hour), billing.EventSubscriptionCancelled, "sub_1", billing.TierPro, ""),
			wantTier:   billing.TierFree,
			wantStatus: subscription.StatusCancelled,
		},
		{
			name:       "successful transaction keeps subscription active",
			event:      eventAt(base.Add(time.Hour), billing.EventTransactionSucceeded, "sub_1", billing.TierPro, "paid"),
			wantTier:   billing.TierPro,
			wantStatus: subscription.StatusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			record := &subscription.Record{
				UserID:        uuid.New(),
				Tier:          billing.TierPro,
				Status:        subscription.StatusActive,
				Provider:      billing.ProviderLemonSqueezy,
				ProviderSubID: "sub_1",
				UpdatedAt:     base,
			}

			updated, err := subscription.Apply(record, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, updated.Tier)
			assert.Equal(t, tt.wantStatus, updated.Status)
		})
	}
}

func TestApply_StaleEvent(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	record := &subscription.Record{
		UserID:        uuid.New(),
		Tier:          billing.TierFree,
		Status:        subscription.StatusCancelled,
		Provider:      billing.ProviderLemonSqueezy,
		ProviderSubID: "sub_1",
		UpdatedAt:     base,
	}

	t.Run("older event for same subscription rejected", func(t *testing.T) {
		t.Parallel()

		stale := eventAt(base.Add(-time.Hour), billing.EventSubscriptionCreated, "sub_1", billing.TierPro, "active")
		_, err := subscription.Apply(record, stale)
		require.ErrorIs(t, err, subscription.ErrStaleEvent)
	})

	t.Run("equal timestamp applies", func(t *testing.T) {
		t.Parallel()

		event := eventAt(base, billing.EventSubscriptionUpdated, "sub_1", billing.TierPro, "active")
		_, err := subscription.Apply(record, event)
		require.NoError(t, err)
	})

	t.Run("older event for different subscription applies", func(t *testing.T) {
		t.Parallel()

		resub := eventAt(base.Add(-time.Hour), billing.EventSubscriptionCreated, "sub_2", billing.TierPro, "active")
		updated, err := subscription.Apply(record, resub)
		require.NoError(t, err)
		assert.Equal(t, billing.TierPro, updated.Tier)
		assert.Equal(t, subscription.StatusActive, updated.Status)
		assert.Equal(t, "sub_2", updated.ProviderSubID)
	})
}

func TestApply_TerminalClearsProviderSubID(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	record := &subscription.Record{
		UserID:        uuid.New(),
		Tier:          billing.TierPro,
		Status:        subscription.StatusActive,
		Provider:      billing.ProviderLemonSqueezy,
		ProviderSubID: "sub_1",
		UpdatedAt:     base,
	}

	cancelled, err := subscription.Apply(record,
		eventAt(base.Add(time.Hour), billing.EventSubscriptionCancelled, "sub_1", billing.TierPro, "cancelled"))
	require.NoError(t, err)
	assert.Empty(t, cancelled.ProviderSubID)
	assert.Equal(t, billing.TierFree, cancelled.Tier)

	// A delayed pre-cancellation update is still rejected with the id gone.
	stale := eventAt(base.Add(30*time.Minute), billing.EventSubscriptionUpdated, "sub_1", billing.TierPro, "active")
	_, err = subscription.Apply(cancelled, stale)
	require.ErrorIs(t, err, subscription.ErrStaleEvent)
}

// Whatever order events arrive in, the latest-by-occurrence event decides
// the final state: a cancellation is never undone by an earlier-dated event
// arriving later.
func TestApply_MonotonicTierSafety(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	created := eventAt(t0.Add(100*time.Second), billing.EventSubscriptionCreated, "sub_1", billing.TierPro, "active")
	updated := eventAt(t0.Add(150*time.Second), billing.EventSubscriptionUpdated, "sub_1", billing.TierPremium, "active")
	cancelled := eventAt(t0.Add(200*time.Second), billing.EventSubscriptionCancelled, "sub_1", billing.TierPremium, "cancelled")

	arrivals := [][]*billing.Event{
		{created, updated, cancelled},
		{created, cancelled, updated},
		{cancelled, created, updated},
		{updated, cancelled, created},
	}

	for _, order := range arrivals {
		record := subscription.NewRecord(userID)
		for _, event := range order {
			next, err := subscription.Apply(record, event)
			if err != nil {
				require.ErrorIs(t, err, subscription.ErrStaleEvent)
				continue
			}
			record = next
		}

		assert.Equal(t, billing.TierFree, record.Tier)
		assert.Equal(t, subscription.StatusCancelled, record.Status)
		assert.Equal(t, billing.TierFree, record.EffectiveTier())
	}
}

// Every (status, event type) pair must resolve to a transition; a new event
// type added without extending the table shows up here.
func TestApply_TransitionTableIsExhaustive(t *testing.T) {
	t.Parallel()

	statuses := []subscription.Status{
		subscription.StatusNone, subscription.StatusTrialing, subscription.StatusActive,
		subscription.StatusPastDue, subscription.StatusCancelled, subscription.StatusExpired,
	}
	eventTypes := []billing.EventType{
		billing.EventOrderCreated, billing.EventSubscriptionCreated,
		billing.EventSubscriptionUpdated, billing.EventSubscriptionCancelled,
		billing.EventTransactionSucceeded,
	}

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, status := range statuses {
		for _, eventType := range eventTypes {
			record := &subscription.Record{
				UserID:        uuid.New(),
				Tier:          billing.TierFree,
				Status:        status,
				ProviderSubID: "sub_1",
				UpdatedAt:     base,
			}
			event := eventAt(base.Add(time.Hour), eventType, "sub_1", billing.TierPro, "")

			_, err := subscription.Apply(record, event)
			assert.NotErrorIs(t, err, subscription.ErrInvalidTransition,
				"missing transition for %s + %s", status, eventType)
		}
	}
}

func TestRecord_EffectiveTier(t *testing.T) {
	t.Parallel()

	record := &subscription.Record{Tier: billing.TierPro, Status: subscription.StatusActive}
	assert.Equal(t, billing.TierPro, record.EffectiveTier())

	// A paid tier left on an expired record must not grant entitlement.
	record = &subscription.Record{Tier: billing.TierPremium, Status: subscription.StatusExpired}
	assert.Equal(t, billing.TierFree, record.EffectiveTier())

	record = &subscription.Record{Tier: billing.TierPro, Status: subscription.StatusPastDue}
	assert.Equal(t, billing.TierPro, record.EffectiveTier())
}
