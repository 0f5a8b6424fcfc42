package entitlement

import "github.com/dmitrymomot/plankit/pkg/billing"

// Action names a gated operation. Every action must be registered in a
// tier's Capability before it can be granted; unregistered actions are
// denied for all tiers.
type Action string

// Actions gated by the planning product.
const (
	ActionCreateCanvas   Action = "create_canvas"
	ActionCreateDocument Action = "create_document"
	ActionExportPDF      Action = "export_pdf"
	ActionCustomBranding Action = "custom_branding"
)

// Unlimited marks a quota with no ceiling (-1 for SQL compatibility).
const Unlimited int64 = -1

// Capability is the static configuration of one tier: quota ceilings for
// countable actions and boolean flags for feature actions. Read-only at
// runtime.
type Capability struct {
	Limits   map[Action]int64
	Features map[Action]bool
}

// DefaultCapabilities returns the built-in tier configuration. Deployments
// override it wholesale through NewResolver when plans change.
func DefaultCapabilities() map[billing.Tier]Capability {
	return map[billing.Tier]Capability{
		billing.TierFree: {
			Limits: map[Action]int64{
				ActionCreateCanvas:   3,
				ActionCreateDocument: 1,
			},
			Features: map[Action]bool{
				ActionExportPDF:      false,
				ActionCustomBranding: false,
			},
		},
		billing.TierPro: {
			Limits: map[Action]int64{
				ActionCreateCanvas:   25,
				ActionCreateDocument: 10,
			},
			Features: map[Action]bool{
				ActionExportPDF:      true,
				ActionCustomBranding: false,
			},
		},
		billing.TierPremium: {
			Limits: map[Action]int64{
				ActionCreateCanvas:   Unlimited,
				ActionCreateDocument: Unlimited,
			},
			Features: map[Action]bool{
				ActionExportPDF:      true,
				ActionCustomBranding: true,
			},
		},
	}
}
