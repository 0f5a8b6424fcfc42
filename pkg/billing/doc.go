// Package billing verifies and normalizes asynchronous webhook notifications
// from payment providers into a single provider-agnostic Event type.
//
// Each provider integration implements the Adapter interface: it
// authenticates the raw request body with the provider's MAC scheme, parses
// the provider-specific envelope, extracts the customer email used to
// correlate the notification with an internal user, and maps the provider's
// plan identifier to an internal Tier through an operator-configured PlanMap.
//
// Adapters are pure functions of their input: they perform no storage or
// network side effects, which keeps them unit-testable against recorded
// webhook payloads.
//
// Two providers are supported:
//
//   - Lemon Squeezy: HMAC-SHA256 hex digest of the raw body in the
//     X-Signature header, numeric variant ids.
//   - Paddle Billing: ts/h1 signature scheme in the Paddle-Signature header,
//     verified through the official SDK, pri_* price ids.
//
// An unrecognized plan id always maps to TierFree and logs a warning; an
// unknown plan must never silently grant paid entitlement.
package billing
