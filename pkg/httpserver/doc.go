// Package httpserver wraps net/http with graceful shutdown, env-driven
// timeouts, and the health probe handlers the service exposes.
//
// Run blocks until the context is cancelled or an interrupt/TERM signal
// arrives, then drains within the shutdown timeout. Listen errors are
// wrapped with ErrStart, shutdown errors with ErrShutdown.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server stopped", logger.Error(err))
//	}
//
// Liveness answers kubelet-style liveness probes unconditionally;
// Readiness gates on dependency checks such as pg.Healthcheck(pool) and
// redis.Healthcheck(client).
package httpserver
