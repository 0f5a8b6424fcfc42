package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// LemonSqueezyConfig holds configuration for the Lemon Squeezy adapter.
type LemonSqueezyConfig struct {
	SigningSecret string `env:"LEMONSQUEEZY_SIGNING_SECRET,required"`
}

// LemonSqueezyAdapter verifies and normalizes Lemon Squeezy webhooks.
// Lemon Squeezy signs the raw request body with HMAC-SHA256 and sends the
// hex digest in the X-Signature header.
type LemonSqueezyAdapter struct {
	secret []byte
	plans  PlanMap
	log    *slog.Logger
	now    func() time.Time
}

// NewLemonSqueezyAdapter creates a Lemon Squeezy webhook adapter.
func NewLemonSqueezyAdapter(cfg LemonSqueezyConfig, plans PlanMap, opts ...AdapterOption) (*LemonSqueezyAdapter, error) {
	if cfg.SigningSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	ac := newAdapterConfig(opts)

	return &LemonSqueezyAdapter{
		secret: []byte(cfg.SigningSecret),
		plans:  plans,
		log:    ac.log,
		now:    time.Now,
	}, nil
}

func (a *LemonSqueezyAdapter) Provider() Provider {
	return ProviderLemonSqueezy
}

// lemonSqueezyPayload mirrors the subset of the Lemon Squeezy webhook
// envelope this system consumes. Orders carry the variant inside
// first_order_item; subscription invoices reference their subscription
// through attributes.subscription_id.
type lemonSqueezyPayload struct {
	Meta struct {
		EventName  string         `json:"event_name"`
		WebhookID  string         `json:"webhook_id"`
		CustomData map[string]any `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		Type       string `json:"type"`
		ID         string `json:"id"`
		Attributes struct {
			UserEmail      string     `json:"user_email"`
			Status         string     `json:"status"`
			VariantID      int64      `json:"variant_id"`
			SubscriptionID int64      `json:"subscription_id"`
			FirstOrderItem *struct {
				VariantID int64 `json:"variant_id"`
			} `json:"first_order_item"`
			CreatedAt time.Time `json:"created_at"`
			UpdatedAt time.Time `json:"updated_at"`
		} `json:"attributes"`
	} `json:"data"`
}

// Parse authenticates and normalizes a Lemon Squeezy webhook delivery.
func (a *LemonSqueezyAdapter) Parse(ctx context.Context, rawBody []byte, signature string) (*Event, error) {
	if err := a.verify(rawBody, signature); err != nil {
		return nil, err
	}

	var payload lemonSqueezyPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if payload.Meta.EventName == "" || payload.Data.ID == "" {
		return nil, fmt.Errorf("%w: missing event name or data id", ErrMalformedPayload)
	}

	eventType, status, err := mapLemonSqueezyEvent(payload.Meta.EventName, payload.Data.Attributes.Status)
	if err != nil {
		return nil, err
	}

	email := payload.Data.Attributes.UserEmail
	if email == "" {
		email = stringFromCustomData(payload.Meta.CustomData, "email", "user_email")
	}
	if email == "" {
		return nil, ErrMissingCorrelationKey
	}

	eventID, err := lemonSqueezyEventID(payload)
	if err != nil {
		return nil, err
	}

	occurredAt := payload.Data.Attributes.UpdatedAt
	if occurredAt.IsZero() {
		occurredAt = payload.Data.Attributes.CreatedAt
	}
	if occurredAt.IsZero() {
		occurredAt = a.now().UTC()
	}

	var raw map[string]any
	_ = json.Unmarshal(rawBody, &raw)

	event := &Event{
		Provider:      ProviderLemonSqueezy,
		EventID:       eventID,
		Type:          eventType,
		CustomerEmail: email,
		SubID:         lemonSqueezySubID(payload),
		PlanID:        lemonSqueezyPlanID(payload),
		Status:        status,
		OccurredAt:    occurredAt.UTC(),
		Raw:           raw,
	}
	event.Tier = resolveTier(a.log, a.plans, ProviderLemonSqueezy, event.PlanID)

	return event, nil
}

// verify recomputes the HMAC over the raw body and compares it with the
// header digest in constant time.
func (a *LemonSqueezyAdapter) verify(rawBody []byte, signature string) error {
	if signature == "" {
		return fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex encoded", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write(rawBody)

	if !hmac.Equal(mac.Sum(nil), provided) {
		return ErrInvalidSignature
	}
	return nil
}

func mapLemonSqueezyEvent(eventName, status string) (EventType, string, error) {
	switch eventName {
	case "order_created":
		return EventOrderCreated, status, nil
	case "subscription_created":
		return EventSubscriptionCreated, status, nil
	case "subscription_updated", "subscription_resumed", "subscription_paused",
		"subscription_unpaused", "subscription_payment_failed":
		return EventSubscriptionUpdated, status, nil
	case "subscription_expired":
		// Expiry arrives as a plain update with a terminal status.
		if status == "" {
			status = "expired"
		}
		return EventSubscriptionUpdated, status, nil
	case "subscription_cancelled":
		if status == "" {
			status = "cancelled"
		}
		return EventSubscriptionCancelled, status, nil
	case "subscription_payment_success":
		return EventTransactionSucceeded, status, nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedEvent, eventName)
	}
}

// lemonSqueezyEventID prefers the provider webhook id; older payloads omit
// it, so the id is synthesized from fields stable across redeliveries. A
// payload with neither a webhook id nor a payload timestamp cannot be
// deduplicated and is rejected.
func lemonSqueezyEventID(p lemonSqueezyPayload) (string, error) {
	if p.Meta.WebhookID != "" {
		return p.Meta.WebhookID, nil
	}
	ts := p.Data.Attributes.UpdatedAt
	if ts.IsZero() {
		ts = p.Data.Attributes.CreatedAt
	}
	if ts.IsZero() {
		return "", fmt.Errorf("%w: no webhook id or timestamp to identify the event", ErrMalformedPayload)
	}
	return fmt.Sprintf("%s:%s:%d", p.Meta.EventName, p.Data.ID, ts.Unix()), nil
}

func lemonSqueezySubID(p lemonSqueezyPayload) string {
	if p.Data.Type == "subscriptions" {
		return p.Data.ID
	}
	if p.Data.Attributes.SubscriptionID > 0 {
		return strconv.FormatInt(p.Data.Attributes.SubscriptionID, 10)
	}
	return ""
}

func lemonSqueezyPlanID(p lemonSqueezyPayload) string {
	if p.Data.Attributes.VariantID > 0 {
		return strconv.FormatInt(p.Data.Attributes.VariantID, 10)
	}
	if item := p.Data.Attributes.FirstOrderItem; item != nil && item.VariantID > 0 {
		return strconv.FormatInt(item.VariantID, 10)
	}
	return ""
}

func stringFromCustomData(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
