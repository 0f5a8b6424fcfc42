package billing

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PlanMap maps provider plan identifiers to internal tiers. Each provider
// owns a disjoint ID space, so lookups are keyed by provider first.
// The map is operator configuration: loaded once at startup, read-only after.
type PlanMap map[Provider]map[string]Tier

// TierFor resolves a provider plan ID to an internal tier.
// Unrecognized IDs resolve to TierFree with ok=false so callers can log the
// miss; an unknown plan must never silently grant paid entitlement.
func (m PlanMap) TierFor(provider Provider, planID string) (Tier, bool) {
	plans, exists := m[provider]
	if !exists {
		return TierFree, false
	}
	tier, exists := plans[planID]
	if !exists {
		return TierFree, false
	}
	return tier, true
}

// PlanMapSource loads the plan-id to tier table.
type PlanMapSource interface {
	Load(ctx context.Context) (PlanMap, error)
}

// StaticPlanMapSource serves an in-memory plan map, mainly for tests and
// hard-coded deployments.
type StaticPlanMapSource struct {
	plans PlanMap
}

func NewStaticPlanMapSource(plans PlanMap) *StaticPlanMapSource {
	return &StaticPlanMapSource{plans: plans}
}

func (s *StaticPlanMapSource) Load(ctx context.Context) (PlanMap, error) {
	if err := validatePlanMap(s.plans); err != nil {
		return nil, err
	}
	return s.plans, nil
}

// YAMLPlanMapSource loads the plan map from a YAML file:
//
//	lemonsqueezy:
//	  "501": pro
//	  "502": premium
//	paddle:
//	  pri_01h1vjes: pro
type YAMLPlanMapSource struct {
	path string
}

func NewYAMLPlanMapSource(path string) *YAMLPlanMapSource {
	return &YAMLPlanMapSource{path: path}
}

func (s *YAMLPlanMapSource) Load(ctx context.Context) (PlanMap, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlanMap, err)
	}

	var plans PlanMap
	if err := yaml.Unmarshal(raw, &plans); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlanMap, err)
	}

	if err := validatePlanMap(plans); err != nil {
		return nil, err
	}

	return plans, nil
}

// ErrFailedToLoadPlanMap indicates the plan table could not be read or parsed.
var ErrFailedToLoadPlanMap = errors.New("failed to load plan map")

// validatePlanMap rejects configurations naming unknown providers or tiers
// to fail fast at startup instead of misclassifying live webhooks.
func validatePlanMap(plans PlanMap) error {
	for provider, entries := range plans {
		switch provider {
		case ProviderLemonSqueezy, ProviderPaddle:
		default:
			return errors.Join(ErrFailedToLoadPlanMap,
				fmt.Errorf("unknown provider %q in plan map", provider))
		}
		for planID, tier := range entries {
			switch tier {
			case TierFree, TierPro, TierPremium:
			default:
				return errors.Join(ErrFailedToLoadPlanMap,
					fmt.Errorf("plan %q maps to unknown tier %q", planID, tier))
			}
		}
	}
	return nil
}
