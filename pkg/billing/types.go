package billing

import "time"

// Provider identifies a payment provider integration.
type Provider string

const (
	ProviderNone         Provider = ""
	ProviderLemonSqueezy Provider = "lemonsqueezy"
	ProviderPaddle       Provider = "paddle"
)

// Tier represents an internal entitlement level, independent of any
// provider's plan naming.
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// EventType is the normalized billing event type. Provider adapters map
// their specific webhook event names onto this closed set; everything
// downstream of the adapter is provider-agnostic.
type EventType string

const (
	EventOrderCreated          EventType = "order_created"
	EventSubscriptionCreated   EventType = "subscription_created"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventTransactionSucceeded  EventType = "transaction_succeeded"
)

// Event is a normalized provider webhook notification.
// (Provider, EventID) uniquely identifies an event and serves as the
// idempotency key; the same pair must never be applied twice.
type Event struct {
	Provider      Provider
	EventID       string // provider's unique event identifier
	Type          EventType
	CustomerEmail string // correlation key to an internal user
	SubID         string // provider's subscription ID, empty if not present
	PlanID        string // provider's plan/variant/price ID
	Status        string // provider-reported subscription status, empty if not present
	Tier          Tier   // mapped from PlanID via the operator plan table
	OccurredAt    time.Time
	Raw           map[string]any // full provider payload for audit logging
}
