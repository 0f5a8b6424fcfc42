package billing_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/plankit/pkg/billing"
)

const lsSecret = "test-signing-secret"

func lsSign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(lsSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func testPlanMap() billing.PlanMap {
	return billing.PlanMap{
		billing.ProviderLemonSqueezy: {
			"501": billing.TierPro,
			"502": billing.TierPremium,
		},
		billing.ProviderPaddle: {
			"pri_pro_monthly":     billing.TierPro,
			"pri_premium_monthly": billing.TierPremium,
		},
	}
}

func newLSAdapter(t *testing.T) *billing.LemonSqueezyAdapter {
	t.Helper()
	adapter, err := billing.NewLemonSqueezyAdapter(
		billing.LemonSqueezyConfig{SigningSecret: lsSecret},
		testPlanMap(),
	)
	require.NoError(t, err)
	return adapter
}

func lsSubscriptionPayload(eventName, status string, variantID int) []byte {
	return fmt.Appendf(nil, `{
		"meta": {"event_name": %q, "webhook_id": "wh_123"},
		"data": {
			"type": "subscriptions",
			"id": "42",
			"attributes": {
				"user_email": "user@example.com",
				"status": %q,
				"variant_id": %d,
				"created_at": "2024-03-01T10:00:00Z",
				"updated_at": "2024-03-01T10:00:00Z"
			}
		}
	}`, eventName, status, variantID)
}

func TestLemonSqueezyAdapter_Parse(t *testing.T) {
	t.Parallel()

	adapter := newLSAdapter(t)
	ctx := context.Background()

	t.Run("subscription created maps to pro tier", func(t *testing.T) {
		t.Parallel()

		body := lsSubscriptionPayload("subscription_created", "active", 501)
		event, err := adapter.Parse(ctx, body, lsSign(body))
		require.NoError(t, err)

		assert.Equal(t, billing.ProviderLemonSqueezy, event.Provider)
		assert.Equal(t, "wh_123", event.EventID)
		assert.Equal(t, billing.EventSubscriptionCreated, event.Type)
		assert.Equal(t, "user@example.com", event.CustomerEmail)
		assert.Equal(t, "42", event.SubID)
		assert.Equal(t, "501", event.PlanID)
		assert.Equal(t, "active", event.Status)
		assert.Equal(t, billing.TierPro, event.Tier)
		assert.False(t, event.OccurredAt.IsZero())
	})

	t.Run("unknown variant maps to free tier", func(t *testing.T) {
		t.Parallel()

		body := lsSubscriptionPayload("subscription_created", "active", 999)
		event, err := adapter.Parse(ctx, body, lsSign(body))
		require.NoError(t, err)
		assert.Equal(t, billing.TierFree, event.Tier)
	})

	t.Run("expiry arrives as update with terminal status", func(t *testing.T) {
		t.Parallel()

		body := lsSubscriptionPayload("subscription_expired", "expired", 501)
		event, err := adapter.Parse(ctx, body, lsSign(body))
		require.NoError(t, err)
		assert.Equal(t, billing.EventSubscriptionUpdated, event.Type)
		assert.Equal(t, "expired", event.Status)
	})

	t.Run("order carries variant in first_order_item", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{
			"meta": {"event_name": "order_created", "webhook_id": "wh_777"},
			"data": {
				"type": "orders",
				"id": "9",
				"attributes": {
					"user_email": "buyer@example.com",
					"status": "paid",
					"first_order_item": {"variant_id": 502},
					"created_at": "2024-03-02T09:00:00Z",
					"updated_at": "2024-03-02T09:00:00Z"
				}
			}
		}`)
		event, err := adapter.Parse(ctx, body, lsSign(body))
		require.NoError(t, err)
		assert.Equal(t, billing.EventOrderCreated, event.Type)
		assert.Equal(t, "502", event.PlanID)
		assert.Equal(t, billing.TierPremium, event.Tier)
		assert.Empty(t, event.SubID)
	})

	t.Run("synthesized event id is stable across redeliveries", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{
			"meta": {"event_name": "subscription_updated"},
			"data": {
				"type": "subscriptions",
				"id": "42",
				"attributes": {
					"user_email": "user@example.com",
					"status": "active",
					"variant_id": 501,
					"updated_at": "2024-03-01T10:00:00Z"
				}
			}
		}`)
		first, err := adapter.Parse(ctx, body, lsSign(body))
		require.NoError(t, err)
		second, err := adapter.Parse(ctx, body, lsSign(body))
		require.NoError(t, err)
		assert.Equal(t, first.EventID, second.EventID)
	})

	t.Run("payment success references parent subscription", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{
			"meta": {"event_name": "subscription_payment_success", "webhook_id": "wh_888"},
			"data": {
				"type": "subscription-invoices",
				"id": "300",
				"attributes": {
					"user_email": "user@example.com",
					"status": "paid",
					"subscription_id": 42,
					"created_at": "2024-03-03T09:00:00Z",
					"updated_at": "2024-03-03T09:00:00Z"
				}
			}
		}`)
		event, err := adapter.Parse(ctx, body, lsSign(body))
		require.NoError(t, err)
		assert.Equal(t, billing.EventTransactionSucceeded, event.Type)
		assert.Equal(t, "42", event.SubID)
	})
}

func TestLemonSqueezyAdapter_ParseFailures(t *testing.T) {
	t.Parallel()

	adapter := newLSAdapter(t)
	ctx := context.Background()

	t.Run("tampered body keeps original signature", func(t *testing.T) {
		t.Parallel()

		body := lsSubscriptionPayload("subscription_created", "active", 501)
		signature := lsSign(body)
		tampered := lsSubscriptionPayload("subscription_created", "active", 502)

		event, err := adapter.Parse(ctx, tampered, signature)
		require.ErrorIs(t, err, billing.ErrInvalidSignature)
		assert.Nil(t, event)
	})

	t.Run("missing signature header", func(t *testing.T) {
		t.Parallel()

		body := lsSubscriptionPayload("subscription_created", "active", 501)
		_, err := adapter.Parse(ctx, body, "")
		require.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("malformed json with valid signature", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{"meta": {`)
		_, err := adapter.Parse(ctx, body, lsSign(body))
		require.ErrorIs(t, err, billing.ErrMalformedPayload)
	})

	t.Run("missing customer email", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{
			"meta": {"event_name": "subscription_created", "webhook_id": "wh_1"},
			"data": {"type": "subscriptions", "id": "42", "attributes": {"status": "active", "variant_id": 501}}
		}`)
		_, err := adapter.Parse(ctx, body, lsSign(body))
		require.ErrorIs(t, err, billing.ErrMissingCorrelationKey)
	})

	t.Run("no webhook id and no timestamps", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{
			"meta": {"event_name": "subscription_updated"},
			"data": {
				"type": "subscriptions",
				"id": "42",
				"attributes": {"user_email": "user@example.com", "status": "active", "variant_id": 501}
			}
		}`)
		_, err := adapter.Parse(ctx, body, lsSign(body))
		require.ErrorIs(t, err, billing.ErrMalformedPayload)
	})

	t.Run("unsupported event name", func(t *testing.T) {
		t.Parallel()

		body := lsSubscriptionPayload("license_key_created", "active", 501)
		_, err := adapter.Parse(ctx, body, lsSign(body))
		require.ErrorIs(t, err, billing.ErrUnsupportedEvent)
	})
}

func TestNewLemonSqueezyAdapter_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := billing.NewLemonSqueezyAdapter(billing.LemonSqueezyConfig{}, testPlanMap())
	require.ErrorIs(t, err, billing.ErrMissingWebhookSecret)
}
