package ratelimit

import (
	"context"
	"time"
)

// Result contains the outcome of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool

	// Limit is the maximum number of requests allowed per window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAt is the time when the current window expires.
	ResetAt time.Time
}

// RetryAfter returns how long to wait before the next request is allowed.
// Returns 0 if the current request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Config defines the fixed-window parameters.
type Config struct {
	// Limit is the maximum number of requests per window.
	Limit int `env:"RATELIMIT_REQUESTS" envDefault:"20"`

	// Window is the duration of a single counting window.
	Window time.Duration `env:"RATELIMIT_WINDOW" envDefault:"1m"`
}

// Limiter defines the interface for rate limiting implementations.
type Limiter interface {
	// Allow checks if a single request is allowed for the given key.
	// The request is counted toward the window even when denied.
	Allow(ctx context.Context, key string) (*Result, error)

	// Status returns the current state without counting a request.
	Status(ctx context.Context, key string) (*Result, error)

	// Reset clears the current window for the given key.
	Reset(ctx context.Context, key string) error
}

// Store defines the interface for rate limit storage backends.
type Store interface {
	// Incr atomically increments the counter for the key's current window,
	// starting a new window if none is active. Returns the counter value
	// after the increment and the window's expiry time.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)

	// Peek returns the counter value and expiry of the key's current window
	// without incrementing. A missing or expired window reports zero.
	Peek(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)

	// Reset removes the key's window.
	Reset(ctx context.Context, key string) error
}
