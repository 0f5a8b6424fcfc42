// Package ratelimit provides a fixed-window request limiter keyed by an
// arbitrary caller identifier (user id, API key, IP address).
//
// Every caller gets a counter scoped to the current window. The first
// request in a window starts it; once the counter reaches the configured
// limit, further requests are denied until the window expires. Windows are
// never sliding: a burst at a window boundary can briefly exceed the
// average rate, which is acceptable for usage quotas.
//
// Two storage backends are provided: MemoryStore for single-process
// deployments and tests, and RedisStore for sharing counters across
// instances.
//
// Basic usage:
//
//	store := ratelimit.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimit.NewFixedWindow(store, ratelimit.Config{
//		Limit:  20,
//		Window: time.Minute,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := limiter.Allow(ctx, userID.String())
//	if err != nil {
//		// storage failure; caller decides whether to fail open
//	}
//	if !result.Allowed {
//		// deny, retry after result.RetryAfter()
//	}
//
// HTTP handlers can use Middleware to enforce limits per request with
// standard X-RateLimit-* response headers.
package ratelimit
