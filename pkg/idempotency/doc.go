// Package idempotency absorbs the at-least-once delivery semantics of
// payment provider webhooks: every event is identified by its
// (provider, event id) pair and applied at most once, no matter how many
// times it is redelivered.
//
// The Guard interface exposes one atomic Admit operation plus retention
// pruning. Three implementations are provided: an in-process map guard for
// tests and single-instance deployments, a Postgres guard that rides a
// unique-constraint insert, and a Redis guard built on SETNX with TTL-based
// retention.
package idempotency
