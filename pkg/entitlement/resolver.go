package entitlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/plankit/pkg/billing"
	"github.com/dmitrymomot/plankit/pkg/subscription"
)

// RecordSource provides the current subscription record for a user.
// Satisfied by subscription.Service.
type RecordSource interface {
	GetRecord(ctx context.Context, userID uuid.UUID) (*subscription.Record, error)
}

// Resolver answers "is this action allowed for this user" from the user's
// effective tier and the static per-tier capabilities.
//
// Denial is a normal boolean outcome, never an error. Genuine
// infrastructure failures fail closed: when the record cannot be loaded the
// action is denied and the failure is logged.
type Resolver struct {
	records      RecordSource
	capabilities map[billing.Tier]Capability
	log          *slog.Logger
}

// ResolverOption configures optional Resolver settings.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver creates an entitlement resolver. All three tiers must be
// configured; a missing tier would silently deny everything for its users.
func NewResolver(records RecordSource, capabilities map[billing.Tier]Capability, opts ...ResolverOption) (*Resolver, error) {
	if records == nil {
		panic("entitlement: RecordSource is required")
	}

	for _, tier := range []billing.Tier{billing.TierFree, billing.TierPro, billing.TierPremium} {
		if _, exists := capabilities[tier]; !exists {
			return nil, fmt.Errorf("%w: %s", ErrTierNotConfigured, tier)
		}
	}

	r := &Resolver{
		records:      records,
		capabilities: capabilities,
		log:          slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// IsAllowed reports whether the user's tier permits the action. For quota
// actions the caller supplies the current resource count; allowed while
// count stays below the ceiling, always for Unlimited ceilings. Unknown
// actions are denied for every tier: new features default to denied until
// explicitly registered.
func (r *Resolver) IsAllowed(ctx context.Context, userID uuid.UUID, action Action, currentUsage ...int64) bool {
	record, err := r.records.GetRecord(ctx, userID)
	if err != nil {
		r.log.ErrorContext(ctx, "entitlement check failed closed",
			slog.String("user_id", userID.String()),
			slog.String("action", string(action)),
			slog.Any("error", err))
		return false
	}

	capability, exists := r.capabilities[record.EffectiveTier()]
	if !exists {
		return false
	}

	if ceiling, isQuota := capability.Limits[action]; isQuota {
		if ceiling == Unlimited {
			return true
		}
		var usage int64
		if len(currentUsage) > 0 {
			usage = currentUsage[0]
		}
		return usage < ceiling
	}

	return capability.Features[action]
}

// LimitFor returns the quota ceiling the tier grants for the action, for
// user-facing messaging. The second return is false for feature-flag and
// unregistered actions.
func (r *Resolver) LimitFor(tier billing.Tier, action Action) (int64, bool) {
	capability, exists := r.capabilities[tier]
	if !exists {
		return 0, false
	}
	ceiling, isQuota := capability.Limits[action]
	return ceiling, isQuota
}
