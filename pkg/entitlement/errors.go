package entitlement

import "errors"

// ErrTierNotConfigured indicates a tier without a Capability entry; caught
// at construction so no tier can be silently denied everything at runtime.
var ErrTierNotConfigured = errors.New("entitlement: tier has no capability configuration")
