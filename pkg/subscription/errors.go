package subscription

import "errors"

var (
	// ErrDuplicateEvent indicates the idempotency guard has already seen
	// this event. Skipped silently; the webhook is still acknowledged.
	ErrDuplicateEvent = errors.New("subscription: duplicate billing event")

	// ErrStaleEvent indicates an event older than the record's last applied
	// event for the same provider subscription id. Skipped with a debug log
	// so a late redelivery cannot undo a newer state.
	ErrStaleEvent = errors.New("subscription: stale billing event")

	// ErrUnresolvedUser indicates the customer email matched no internal
	// user. Flagged for manual reconciliation; retrying cannot create a
	// missing account, so the webhook is acknowledged anyway.
	ErrUnresolvedUser = errors.New("subscription: no user for customer email")

	// ErrInvalidTransition indicates the transition table defines no move
	// for the record's current status and the incoming event type.
	ErrInvalidTransition = errors.New("subscription: no transition for event")

	ErrRecordNotFound = errors.New("subscription: record not found")
	ErrStoreFailure   = errors.New("subscription: store failure")
)
