package idempotency

import (
	"context"
	"time"

	"github.com/dmitrymomot/plankit/pkg/billing"
)

// Guard deduplicates at-least-once webhook delivery so a given
// (provider, event id) pair is processed at most once.
//
// Admit must be atomic: two concurrent deliveries of the same event must
// never both be admitted. Implementations rely on a single-statement
// check-and-mark (unique-constraint insert, SETNX, or a mutex-held map write).
type Guard interface {
	// Admit records the event as seen. Returns true if the event is novel
	// and should be processed, false if it was already seen. A duplicate is
	// not an error: the webhook endpoint still acknowledges receipt so the
	// provider stops retrying.
	Admit(ctx context.Context, provider billing.Provider, eventID string) (bool, error)

	// Prune removes entries older than the retention window. Retention must
	// exceed the provider's maximum redelivery interval; pruning is
	// housekeeping, not correctness-critical.
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}
