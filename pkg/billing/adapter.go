package billing

import (
	"context"
	"log/slog"
)

// Adapter verifies and normalizes one provider's webhook notifications.
//
// Implementations must authenticate the raw, unparsed body before touching
// its contents, and must be free of storage and network side effects so they
// can be unit-tested against recorded payloads.
type Adapter interface {
	// Provider returns the provider this adapter handles.
	Provider() Provider

	// Parse verifies the payload signature and converts the body into a
	// normalized Event. No partial Event is produced on failure.
	Parse(ctx context.Context, rawBody []byte, signature string) (*Event, error)
}

// AdapterOption configures optional adapter behavior.
type AdapterOption func(*adapterConfig)

type adapterConfig struct {
	log *slog.Logger
}

// WithLogger sets the logger used for plan-mapping warnings.
func WithLogger(log *slog.Logger) AdapterOption {
	return func(c *adapterConfig) {
		if log != nil {
			c.log = log
		}
	}
}

func newAdapterConfig(opts []AdapterOption) adapterConfig {
	cfg := adapterConfig{log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// resolveTier maps a provider plan ID through the operator plan table.
// Unknown IDs resolve to TierFree and are logged; granting paid entitlement
// for an unrecognized plan is never acceptable.
func resolveTier(log *slog.Logger, plans PlanMap, provider Provider, planID string) Tier {
	if planID == "" {
		return TierFree
	}
	tier, ok := plans.TierFor(provider, planID)
	if !ok {
		log.Warn("unrecognized plan id, defaulting to free tier",
			slog.String("provider", string(provider)),
			slog.String("plan_id", planID))
	}
	return tier
}
