package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/plankit/pkg/billing"
)

// Status represents the current state of a user's subscription.
type Status string

const (
	StatusNone      Status = "none"
	StatusTrialing  Status = "trialing"
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether the status ends the current subscription.
// A user may start a new subscription afterward under a new provider
// subscription id.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

// Record is the authoritative billing state for one user. Exactly one
// record exists per user; all mutations go through Apply so the invariant
// "tier is free whenever status is none, cancelled or expired" holds.
type Record struct {
	UserID        uuid.UUID
	Tier          billing.Tier
	Status        Status
	Provider      billing.Provider // retained after cancellation for audit
	ProviderSubID string           // empty in terminal states, the subscription has ended
	LastEventID   string
	UpdatedAt     time.Time // provider-reported time of the last applied event
}

// NewRecord returns the implicit free-tier record for a user that has never
// subscribed.
func NewRecord(userID uuid.UUID) *Record {
	return &Record{
		UserID: userID,
		Tier:   billing.TierFree,
		Status: StatusNone,
	}
}

// IsActive reports whether the subscription currently grants paid access.
func (r *Record) IsActive() bool {
	return r.Status == StatusActive || r.Status == StatusTrialing
}

// EffectiveTier returns the tier entitlement checks should use: a record in
// a terminal or empty state is always treated as free, even if a missed
// webhook left a stale paid tier on it.
func (r *Record) EffectiveTier() billing.Tier {
	if r.Status == StatusNone || r.Status.Terminal() {
		return billing.TierFree
	}
	return r.Tier
}
