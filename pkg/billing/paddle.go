package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle adapter.
type PaddleConfig struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
}

// PaddleAdapter verifies and normalizes Paddle Billing webhooks using the
// official SDK's signature verifier (ts/h1 scheme, constant-time compare).
type PaddleAdapter struct {
	verifier *paddle.WebhookVerifier
	plans    PlanMap
	log      *slog.Logger
	now      func() time.Time
}

// NewPaddleAdapter creates a Paddle webhook adapter.
func NewPaddleAdapter(cfg PaddleConfig, plans PlanMap, opts ...AdapterOption) (*PaddleAdapter, error) {
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	ac := newAdapterConfig(opts)

	return &PaddleAdapter{
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		plans:    plans,
		log:      ac.log,
		now:      time.Now,
	}, nil
}

func (a *PaddleAdapter) Provider() Provider {
	return ProviderPaddle
}

// paddleEnvelope is the common wrapper around every Paddle webhook.
type paddleEnvelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// paddleEventData covers the subscription and transaction fields this
// system consumes. The billing email arrives in customer_email on most
// events; custom_data set at checkout is the fallback.
type paddleEventData struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	SubscriptionID string         `json:"subscription_id"`
	CustomerEmail  string         `json:"customer_email"`
	CustomData     map[string]any `json:"custom_data"`
	Items          []struct {
		PriceID string `json:"price_id"`
		Price   struct {
			ID string `json:"id"`
		} `json:"price"`
	} `json:"items"`
}

// Parse authenticates and normalizes a Paddle webhook delivery.
func (a *PaddleAdapter) Parse(ctx context.Context, rawBody []byte, signature string) (*Event, error) {
	if err := a.verify(ctx, rawBody, signature); err != nil {
		return nil, err
	}

	var envelope paddleEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if envelope.EventID == "" || envelope.EventType == "" {
		return nil, fmt.Errorf("%w: missing event id or event type", ErrMalformedPayload)
	}

	eventType, err := mapPaddleEvent(envelope.EventType)
	if err != nil {
		return nil, err
	}

	var data paddleEventData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}

	email := data.CustomerEmail
	if email == "" {
		email = stringFromCustomData(data.CustomData, "email", "customer_email")
	}
	if email == "" {
		return nil, ErrMissingCorrelationKey
	}

	occurredAt := envelope.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = a.now().UTC()
	}

	var raw map[string]any
	_ = json.Unmarshal(rawBody, &raw)

	event := &Event{
		Provider:      ProviderPaddle,
		EventID:       envelope.EventID,
		Type:          eventType,
		CustomerEmail: email,
		SubID:         paddleSubID(envelope.EventType, data),
		PlanID:        paddlePlanID(data),
		Status:        data.Status,
		OccurredAt:    occurredAt.UTC(),
		Raw:           raw,
	}
	event.Tier = resolveTier(a.log, a.plans, ProviderPaddle, event.PlanID)

	return event, nil
}

// verify runs the SDK verifier against a reconstructed request carrying the
// raw body and the Paddle-Signature header.
func (a *PaddleAdapter) verify(ctx context.Context, rawBody []byte, signature string) error {
	if signature == "" {
		return fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(rawBody))
	if err != nil {
		return errors.Join(ErrInvalidSignature, err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := a.verifier.Verify(req)
	if err != nil {
		return errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return ErrInvalidSignature
	}
	return nil
}

func mapPaddleEvent(eventType string) (EventType, error) {
	switch eventType {
	case "subscription.created":
		return EventSubscriptionCreated, nil
	case "subscription.updated", "subscription.resumed", "subscription.paused",
		"subscription.past_due":
		return EventSubscriptionUpdated, nil
	case "subscription.canceled":
		return EventSubscriptionCancelled, nil
	case "transaction.completed", "transaction.payment_succeeded":
		return EventTransactionSucceeded, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEvent, eventType)
	}
}

// paddleSubID picks the subscription id: for subscription events it is the
// entity id itself, for transactions it is the referenced subscription.
func paddleSubID(eventType string, data paddleEventData) string {
	if data.SubscriptionID != "" {
		return data.SubscriptionID
	}
	if strings.HasPrefix(eventType, "subscription.") {
		return data.ID
	}
	return ""
}

func paddlePlanID(data paddleEventData) string {
	if len(data.Items) == 0 {
		return ""
	}
	if data.Items[0].PriceID != "" {
		return data.Items[0].PriceID
	}
	return data.Items[0].Price.ID
}
