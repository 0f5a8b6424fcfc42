// Package entitlement maps a user's subscription tier to the set of
// actions and quotas it grants, and answers allow/deny queries for the
// presentation layer.
//
// Checks are pure functions of the record's effective tier and the static
// per-tier Capability table. Two rules hold everywhere: a record in a
// terminal or empty state is treated as free tier even if a missed webhook
// left a paid tier on it, and anything that cannot be positively resolved
// (unknown action, unconfigured tier, record load failure) is denied.
package entitlement
