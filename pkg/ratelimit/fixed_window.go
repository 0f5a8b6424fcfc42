package ratelimit

import (
	"context"
	"time"
)

// FixedWindow implements a fixed-window rate limiter.
// All requests within a window share one counter; the counter and the
// window expiry are managed by the Store, so limits are exactly as strict
// as the backend is shared (per process for MemoryStore, global for
// RedisStore).
type FixedWindow struct {
	store  Store
	config Config
}

// NewFixedWindow creates a fixed-window limiter backed by the given store.
func NewFixedWindow(store Store, config Config) (*FixedWindow, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if config.Limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if config.Window <= 0 {
		return nil, ErrInvalidWindow
	}

	return &FixedWindow{
		store:  store,
		config: config,
	}, nil
}

// Allow counts one request against the key's current window and reports
// whether it fit under the limit. Denied requests are still counted, so a
// caller hammering a closed window does not get fresh capacity the moment
// it reopens with stale in-flight requests.
func (fw *FixedWindow) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	count, resetAt, err := fw.store.Incr(ctx, key, fw.config.Window)
	if err != nil {
		return nil, err
	}

	return fw.result(count, resetAt), nil
}

// Status reports the key's current window without consuming a request.
func (fw *FixedWindow) Status(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	count, resetAt, err := fw.store.Peek(ctx, key, fw.config.Window)
	if err != nil {
		return nil, err
	}

	result := fw.result(count, resetAt)
	// Status asks "would one more request pass", not "did the last one".
	result.Allowed = count < int64(fw.config.Limit)
	return result, nil
}

// Reset clears the current window for the given key.
func (fw *FixedWindow) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return fw.store.Reset(ctx, key)
}

func (fw *FixedWindow) result(count int64, resetAt time.Time) *Result {
	remaining := int64(fw.config.Limit) - count
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   count <= int64(fw.config.Limit),
		Limit:     fw.config.Limit,
		Remaining: int(remaining),
		ResetAt:   resetAt,
	}
}
