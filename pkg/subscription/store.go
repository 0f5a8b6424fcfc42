package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists one Record per user, keyed by user id.
type Store interface {
	// Get retrieves a user's record. Returns ErrRecordNotFound if the user
	// has never had a billing event applied.
	Get(ctx context.Context, userID uuid.UUID) (*Record, error)

	// Save creates or updates the record for record.UserID.
	Save(ctx context.Context, record *Record) error

	// ListOverdue returns records the reconciliation sweep should look at:
	// trialing or past-due records not refreshed since updatedBefore (the
	// provider never sent the follow-up webhook), and records whose tier
	// violates the free-when-terminal invariant.
	ListOverdue(ctx context.Context, updatedBefore time.Time) ([]Record, error)
}
