package subscription

import (
	"fmt"

	"github.com/dmitrymomot/plankit/pkg/billing"
)

type transitionKey struct {
	from  Status
	event billing.EventType
}

// transitionTable is the closed (current status, event type) transition map.
// The provider-reported status refines the base target afterwards, so a
// subscription_updated carrying status=past_due lands on StatusPastDue even
// though its base target is StatusActive.
//
// Every event type must appear for every status: a missing entry makes
// Apply reject the event, and the exhaustiveness test fails when a new
// event type is added without extending this table.
var transitionTable = map[transitionKey]Status{
	// No subscription yet: any billing event bootstraps the record. Updates
	// can arrive before the creation event they follow, so they create too.
	{StatusNone, billing.EventOrderCreated}:          StatusActive,
	{StatusNone, billing.EventSubscriptionCreated}:   StatusActive,
	{StatusNone, billing.EventSubscriptionUpdated}:   StatusActive,
	{StatusNone, billing.EventSubscriptionCancelled}: StatusCancelled,
	{StatusNone, billing.EventTransactionSucceeded}:  StatusActive,

	{StatusTrialing, billing.EventOrderCreated}:          StatusActive,
	{StatusTrialing, billing.EventSubscriptionCreated}:   StatusActive,
	{StatusTrialing, billing.EventSubscriptionUpdated}:   StatusActive,
	{StatusTrialing, billing.EventSubscriptionCancelled}: StatusCancelled,
	{StatusTrialing, billing.EventTransactionSucceeded}:  StatusActive,

	{StatusActive, billing.EventOrderCreated}:          StatusActive,
	{StatusActive, billing.EventSubscriptionCreated}:   StatusActive,
	{StatusActive, billing.EventSubscriptionUpdated}:   StatusActive,
	{StatusActive, billing.EventSubscriptionCancelled}: StatusCancelled,
	{StatusActive, billing.EventTransactionSucceeded}:  StatusActive,

	{StatusPastDue, billing.EventOrderCreated}:          StatusActive,
	{StatusPastDue, billing.EventSubscriptionCreated}:   StatusActive,
	{StatusPastDue, billing.EventSubscriptionUpdated}:   StatusActive,
	{StatusPastDue, billing.EventSubscriptionCancelled}: StatusCancelled,
	{StatusPastDue, billing.EventTransactionSucceeded}:  StatusActive,

	// Terminal states are terminal per provider subscription id only; a new
	// subscription (or a resume inside the grace period) re-enters active.
	{StatusCancelled, billing.EventOrderCreated}:          StatusActive,
	{StatusCancelled, billing.EventSubscriptionCreated}:   StatusActive,
	{StatusCancelled, billing.EventSubscriptionUpdated}:   StatusActive,
	{StatusCancelled, billing.EventSubscriptionCancelled}: StatusCancelled,
	{StatusCancelled, billing.EventTransactionSucceeded}:  StatusActive,

	{StatusExpired, billing.EventOrderCreated}:          StatusActive,
	{StatusExpired, billing.EventSubscriptionCreated}:   StatusActive,
	{StatusExpired, billing.EventSubscriptionUpdated}:   StatusActive,
	{StatusExpired, billing.EventSubscriptionCancelled}: StatusCancelled,
	{StatusExpired, billing.EventTransactionSucceeded}:  StatusActive,
}

// Apply computes the record state after the event, without mutating the
// input. Pure function: callers own locking and persistence.
//
// Ordering protection: an event strictly older than the record's last
// applied event for the same provider subscription id returns ErrStaleEvent.
// Events for a different subscription id always apply, so a legitimate
// resubscribe or provider switch is never blocked.
func Apply(record *Record, event *billing.Event) (*Record, error) {
	if record == nil || event == nil {
		return nil, fmt.Errorf("%w: nil record or event", ErrInvalidTransition)
	}

	differentSub := event.SubID != "" && record.ProviderSubID != "" && event.SubID != record.ProviderSubID

	if !differentSub && !record.UpdatedAt.IsZero() && event.OccurredAt.Before(record.UpdatedAt) {
		return nil, ErrStaleEvent
	}

	base, ok := transitionTable[transitionKey{from: record.Status, event: event.Type}]
	if !ok {
		return nil, fmt.Errorf("%w: %s + %s", ErrInvalidTransition, record.Status, event.Type)
	}

	next := refineStatus(base, event.Status)

	// A cancellation event must end the subscription regardless of what
	// status string the provider attached to it.
	if event.Type == billing.EventSubscriptionCancelled && !next.Terminal() {
		next = StatusCancelled
	}

	updated := &Record{
		UserID:        record.UserID,
		Provider:      event.Provider,
		ProviderSubID: record.ProviderSubID,
		LastEventID:   event.EventID,
		UpdatedAt:     event.OccurredAt,
		Status:        next,
	}
	if event.SubID != "" {
		updated.ProviderSubID = event.SubID
	}
	// Terminal states carry no live provider subscription. Late events for
	// the ended subscription are still rejected by the UpdatedAt check above.
	if next.Terminal() {
		updated.ProviderSubID = ""
	}

	switch {
	case next == StatusNone || next.Terminal():
		// Invariant: free tier whenever there is no live subscription.
		updated.Tier = billing.TierFree
	case event.PlanID == "" && !differentSub && record.Tier != "":
		// Events without plan information refresh status only.
		updated.Tier = record.Tier
	default:
		updated.Tier = event.Tier
	}

	return updated, nil
}

// refineStatus maps the provider-reported status onto the internal enum,
// falling back to the table's base target for unrecognized values.
func refineStatus(base Status, providerStatus string) Status {
	switch providerStatus {
	case "active", "paid", "completed":
		return StatusActive
	case "trialing", "on_trial":
		return StatusTrialing
	case "past_due", "unpaid", "paused":
		return StatusPastDue
	case "cancelled", "canceled":
		return StatusCancelled
	case "expired":
		return StatusExpired
	default:
		return base
	}
}
