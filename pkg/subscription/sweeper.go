package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/plankit/pkg/billing"
)

// SweeperConfig configures the periodic reconciliation sweep.
type SweeperConfig struct {
	// Schedule is a cron spec; "@every 1h" style intervals work too.
	Schedule string `env:"SUBSCRIPTION_SWEEP_SCHEDULE" envDefault:"@every 1h"`
	// MaxAge is how long a trialing or past-due record may sit without a
	// provider update before it is force-expired.
	MaxAge time.Duration `env:"SUBSCRIPTION_SWEEP_MAX_AGE" envDefault:"840h"`
}

// Sweeper periodically downgrades records the providers never sent a final
// webhook for: trials and past-due subscriptions that outlived MaxAge, and
// records whose tier violates the free-when-terminal invariant.
//
// Entitlement checks already treat terminal records as free, so the sweep
// is a correction of persisted state, not the entitlement gate itself.
type Sweeper struct {
	store  Store
	config SweeperConfig
	cron   *cron.Cron
	log    *slog.Logger
	now    func() time.Time
}

// SweeperOption configures optional Sweeper settings.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the sweeper logger.
func WithSweeperLogger(log *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSweeperClock overrides the time source for deterministic tests.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSweeper creates a reconciliation sweeper. Call Start to schedule it.
func NewSweeper(store Store, config SweeperConfig, opts ...SweeperOption) *Sweeper {
	if store == nil {
		panic("subscription: Store is required")
	}

	s := &Sweeper{
		store:  store,
		config: config,
		log:    slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start schedules the sweep on its cron spec.
func (s *Sweeper) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.log.Error("reconciliation sweep failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.config.Schedule, err)
	}
	s.cron.Start()
	return nil
}

// Stop cancels the scheduled sweep and waits for a running one to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunOnce executes a single sweep and returns how many records it fixed.
//
// The record's UpdatedAt is deliberately left untouched: bumping it would
// make a late provider webhook look stale and block a legitimate
// reactivation.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.config.MaxAge)

	overdue, err := s.store.ListOverdue(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var swept int
	for _, record := range overdue {
		record := record

		switch {
		case record.Status == StatusTrialing || record.Status == StatusPastDue:
			record.Status = StatusExpired
			record.Tier = billing.TierFree
		case record.Tier != billing.TierFree:
			record.Tier = billing.TierFree
		default:
			continue
		}

		if err := s.store.Save(ctx, &record); err != nil {
			return swept, err
		}
		swept++

		s.log.InfoContext(ctx, "subscription record reconciled",
			slog.String("user_id", record.UserID.String()),
			slog.String("status", string(record.Status)))
	}

	return swept, nil
}
