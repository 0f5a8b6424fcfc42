package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/plankit/pkg/billing"
	"github.com/dmitrymomot/plankit/pkg/idempotency"
)

// UserResolver maps a provider-reported customer email to an internal user
// id. Both providers correlate by billing email; injecting the lookup keeps
// the core independent of the account storage and lets a deployment swap in
// a stored external-customer-id mapping later.
type UserResolver func(ctx context.Context, email string) (uuid.UUID, error)

// Service ingests normalized billing events and applies them to the
// authoritative per-user subscription records.
//
// Pipeline per webhook: adapter parse -> idempotency admit -> per-user
// serialized state transition -> persist. The idempotency marker is durable
// before the transition, and callers must not acknowledge the webhook
// before Process returns.
type Service struct {
	adapters map[billing.Provider]billing.Adapter
	guard    idempotency.Guard
	store    Store
	resolve  UserResolver

	locks userLocks
	log   *slog.Logger
}

// ServiceOption configures optional Service settings.
type ServiceOption func(*Service)

// WithAdapter registers a provider adapter with the service.
func WithAdapter(adapter billing.Adapter) ServiceOption {
	return func(s *Service) {
		s.adapters[adapter.Provider()] = adapter
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a subscription reconciliation service.
// Panics if required dependencies are nil to fail fast during initialization.
func NewService(guard idempotency.Guard, store Store, resolve UserResolver, opts ...ServiceOption) *Service {
	if guard == nil {
		panic("subscription: idempotency.Guard is required")
	}
	if store == nil {
		panic("subscription: Store is required")
	}
	if resolve == nil {
		panic("subscription: UserResolver is required")
	}

	s := &Service{
		adapters: make(map[billing.Provider]billing.Adapter),
		guard:    guard,
		store:    store,
		resolve:  resolve,
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// HandleWebhook verifies, normalizes and applies one raw webhook delivery.
// The raw body must be passed exactly as received; re-serializing it would
// break the MAC check.
func (s *Service) HandleWebhook(ctx context.Context, provider billing.Provider, rawBody []byte, signature string) error {
	adapter, exists := s.adapters[provider]
	if !exists {
		return fmt.Errorf("%w: %s", billing.ErrUnknownProvider, provider)
	}

	event, err := adapter.Parse(ctx, rawBody, signature)
	if err != nil {
		return err
	}

	_, err = s.Process(ctx, event)
	return err
}

// Process applies a normalized event to the owning user's record.
//
// Skip-type outcomes are reported as sentinel errors so the HTTP boundary
// can acknowledge them: ErrDuplicateEvent and ErrStaleEvent are silent
// no-ops, ErrUnresolvedUser is acknowledged but flagged for manual review.
func (s *Service) Process(ctx context.Context, event *billing.Event) (*Record, error) {
	admitted, err := s.guard.Admit(ctx, event.Provider, event.EventID)
	if err != nil {
		return nil, err
	}
	if !admitted {
		s.log.DebugContext(ctx, "duplicate billing event skipped",
			slog.String("provider", string(event.Provider)),
			slog.String("event_id", event.EventID))
		return nil, ErrDuplicateEvent
	}

	userID, err := s.resolve(ctx, event.CustomerEmail)
	if err != nil {
		s.log.WarnContext(ctx, "billing event for unknown user, flagged for manual reconciliation",
			slog.String("provider", string(event.Provider)),
			slog.String("event_id", event.EventID),
			slog.String("email", event.CustomerEmail))
		return nil, errors.Join(ErrUnresolvedUser, err)
	}

	// Writers to one user's record are serialized; different users proceed
	// fully in parallel.
	unlock := s.locks.lock(userID)
	defer unlock()

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		record = NewRecord(userID)
	}

	updated, err := Apply(record, event)
	if err != nil {
		switch {
		case errors.Is(err, ErrStaleEvent):
			s.log.DebugContext(ctx, "stale billing event skipped",
				slog.String("provider", string(event.Provider)),
				slog.String("event_id", event.EventID),
				slog.Time("occurred_at", event.OccurredAt),
				slog.Time("record_updated_at", record.UpdatedAt))
		case errors.Is(err, ErrInvalidTransition):
			s.log.WarnContext(ctx, "billing event has no valid transition",
				slog.String("provider", string(event.Provider)),
				slog.String("event_type", string(event.Type)),
				slog.String("status", string(record.Status)))
		}
		return nil, err
	}

	if err := s.store.Save(ctx, updated); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "billing event applied",
		slog.String("provider", string(event.Provider)),
		slog.String("event_id", event.EventID),
		slog.String("event_type", string(event.Type)),
		slog.String("user_id", userID.String()),
		slog.String("tier", string(updated.Tier)),
		slog.String("status", string(updated.Status)))

	return updated, nil
}

// GetRecord returns the user's record, or the implicit free record if no
// billing event was ever applied.
func (s *Service) GetRecord(ctx context.Context, userID uuid.UUID) (*Record, error) {
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return NewRecord(userID), nil
		}
		return nil, err
	}
	return record, nil
}

// PruneSeenEvents removes idempotency markers older than the retention
// window. Housekeeping only; retention must exceed the providers'
// maximum redelivery interval.
func (s *Service) PruneSeenEvents(ctx context.Context, retention time.Duration) (int64, error) {
	return s.guard.Prune(ctx, retention)
}

// userLocks hands out one mutex per user id. Entries are kept for the
// process lifetime; the map is bounded by the number of users with billing
// activity.
type userLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (l *userLocks) lock(userID uuid.UUID) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	m, exists := l.locks[userID]
	if !exists {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
