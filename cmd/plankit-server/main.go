// Command plankit-server runs the billing webhook endpoints with Postgres
// persistence, Redis-backed idempotency and rate limiting, and the periodic
// reconciliation sweep.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	billingmod "github.com/dmitrymomot/plankit/modules/billing"
	"github.com/dmitrymomot/plankit/pkg/billing"
	"github.com/dmitrymomot/plankit/pkg/config"
	"github.com/dmitrymomot/plankit/pkg/httpserver"
	"github.com/dmitrymomot/plankit/pkg/idempotency"
	"github.com/dmitrymomot/plankit/pkg/logger"
	"github.com/dmitrymomot/plankit/pkg/pg"
	"github.com/dmitrymomot/plankit/pkg/ratelimit"
	"github.com/dmitrymomot/plankit/pkg/redis"
	"github.com/dmitrymomot/plankit/pkg/subscription"
)

type appConfig struct {
	PlanMapPath string `env:"PLAN_MAP_PATH" envDefault:"plans.yaml"`

	Logger       logger.Config
	HTTP         httpserver.Config
	PG           pg.Config
	Redis        redis.Config
	LemonSqueezy billing.LemonSqueezyConfig
	Paddle       billing.PaddleConfig
	Sweeper      subscription.SweeperConfig
	RateLimit    ratelimit.Config
}

func main() {
	ctx := context.Background()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithConfig(cfg.Logger),
		logger.WithAttr(logger.Component("plankit-server")),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		log.Error("postgres connect failed", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		log.Error("migrations failed", logger.Error(err))
		os.Exit(1)
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	plans, err := billing.NewYAMLPlanMapSource(cfg.PlanMapPath).Load(ctx)
	if err != nil {
		log.Error("plan map load failed", logger.Error(err))
		os.Exit(1)
	}

	lsAdapter, err := billing.NewLemonSqueezyAdapter(cfg.LemonSqueezy, plans, billing.WithLogger(log))
	if err != nil {
		log.Error("lemonsqueezy adapter init failed", logger.Error(err))
		os.Exit(1)
	}
	paddleAdapter, err := billing.NewPaddleAdapter(cfg.Paddle, plans, billing.WithLogger(log))
	if err != nil {
		log.Error("paddle adapter init failed", logger.Error(err))
		os.Exit(1)
	}

	store := subscription.NewPostgresStore(pool)
	svc := subscription.NewService(
		idempotency.NewPostgresGuard(pool),
		store,
		resolveUserByEmail(pool),
		subscription.WithAdapter(lsAdapter),
		subscription.WithAdapter(paddleAdapter),
		subscription.WithServiceLogger(log),
	)

	sweeper := subscription.NewSweeper(store, cfg.Sweeper, subscription.WithSweeperLogger(log))
	if err := sweeper.Start(); err != nil {
		log.Error("sweeper start failed", logger.Error(err))
		os.Exit(1)
	}
	defer sweeper.Stop()

	limiter, err := ratelimit.NewFixedWindow(ratelimit.NewRedisStore(redisClient), cfg.RateLimit)
	if err != nil {
		log.Error("rate limiter init failed", logger.Error(err))
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Mount("/billing", billingmod.Router(billingmod.RouterOptions{
		Webhooks: billingmod.NewWebhookService(svc, billingmod.WithWebhookLogger(log)),
		Middleware: []func(http.Handler) http.Handler{
			ratelimit.Middleware(limiter, ratelimit.KeyByIP),
		},
	}))

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	if err := srv.Run(ctx, r); err != nil {
		log.Error("server stopped", logger.Error(err))
		os.Exit(1)
	}
}

// resolveUserByEmail correlates provider billing emails with user accounts.
func resolveUserByEmail(pool *pgxpool.Pool) subscription.UserResolver {
	return func(ctx context.Context, email string) (uuid.UUID, error) {
		var userID uuid.UUID
		err := pool.QueryRow(ctx,
			`SELECT id FROM users WHERE lower(email) = lower($1)`, email,
		).Scan(&userID)
		if err != nil {
			if pg.IsNotFoundError(err) {
				return uuid.Nil, subscription.ErrUnresolvedUser
			}
			return uuid.Nil, err
		}
		return userID, nil
	}
}
