// Package subscription owns the authoritative per-user subscription record
// and the state machine that mutates it.
//
// Billing events normalized by the billing package flow through the
// Service: the idempotency guard absorbs redelivery, the user resolver
// correlates the provider's customer email to an internal user, and Apply
// computes the next record state from an explicit
// (current status, event type) transition table.
//
// # Ordering
//
// Providers deliver webhooks at least once and out of order. Two defenses
// keep records correct:
//
//   - the idempotency guard drops exact redeliveries of an event, and
//   - Apply rejects events strictly older than the record's last applied
//     event for the same provider subscription id, so a late stale
//     notification cannot undo a newer one.
//
// Events for a different subscription id always apply; that is a
// legitimate resubscribe or provider switch, not a stale delivery.
//
// # Concurrency
//
// Reads-then-writes to one user's record are serialized through a per-user
// mutex inside the Service. Different users never block each other.
//
// # Reconciliation sweep
//
// Providers occasionally fail to send the final webhook of a subscription's
// life. The Sweeper periodically force-expires trialing and past-due
// records that outlived their window and repairs any record whose tier
// violates the free-when-terminal invariant. Entitlement checks already
// treat such records as free tier, so the sweep corrects persisted state
// rather than gating access.
package subscription
