package idempotency

import "errors"

var (
	// ErrEmptyEventID indicates an admit call without an event identifier.
	ErrEmptyEventID = errors.New("idempotency: event id is required")

	// ErrStoreUnavailable indicates the backing store could not be reached.
	// Callers should surface this as a retryable failure (HTTP 500) so the
	// provider redelivers.
	ErrStoreUnavailable = errors.New("idempotency: store unavailable")
)
