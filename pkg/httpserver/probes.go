package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/plankit/pkg/logger"
)

// Check reports whether a dependency is reachable. pg.Healthcheck and
// redis.Healthcheck satisfy it.
type Check func(ctx context.Context) error

// Liveness reports process health only and always returns 200.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Readiness runs every dependency check against the request context and
// returns 503 as soon as one fails.
func Readiness(log *slog.Logger, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
