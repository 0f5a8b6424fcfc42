package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/plankit/pkg/billing"
	"github.com/dmitrymomot/plankit/pkg/subscription"
)

// maxWebhookBody caps webhook payload size. Both providers send payloads
// well under this; anything larger is not a legitimate delivery.
const maxWebhookBody = 1 << 20

// Signature header names per provider.
const (
	lemonSqueezySignatureHeader = "X-Signature"
	paddleSignatureHeader       = "Paddle-Signature"
)

// WebhookService exposes the provider webhook endpoints.
//
// Response codes steer provider retry behavior: 2xx stops redelivery, so
// outcomes that a retry cannot fix (duplicates, stale events, unknown
// users) are acknowledged even though nothing was applied. Only transient
// failures return 5xx.
type WebhookService struct {
	svc *subscription.Service
	log *slog.Logger
}

// WebhookServiceOption configures optional WebhookService settings.
type WebhookServiceOption func(*WebhookService)

// WithWebhookLogger sets the handler logger.
func WithWebhookLogger(log *slog.Logger) WebhookServiceOption {
	return func(s *WebhookService) {
		if log != nil {
			s.log = log
		}
	}
}

// NewWebhookService creates the webhook endpoint service.
// Panics if svc is nil to fail fast during initialization.
func NewWebhookService(svc *subscription.Service, opts ...WebhookServiceOption) *WebhookService {
	if svc == nil {
		panic("billing: subscription.Service is required")
	}

	s := &WebhookService{
		svc: svc,
		log: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *WebhookService) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/lemonsqueezy", s.handleWebhook(billing.ProviderLemonSqueezy, lemonSqueezySignatureHeader))
	r.Post("/paddle", s.handleWebhook(billing.ProviderPaddle, paddleSignatureHeader))

	return r
}

func (s *WebhookService) handleWebhook(provider billing.Provider, signatureHeader string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			s.log.WarnContext(ctx, "failed to read webhook body",
				slog.String("provider", string(provider)),
				slog.Any("error", err))
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		signature := r.Header.Get(signatureHeader)

		err = s.svc.HandleWebhook(ctx, provider, rawBody, signature)
		if err == nil {
			w.WriteHeader(http.StatusOK)
			return
		}

		switch {
		case errors.Is(err, billing.ErrInvalidSignature):
			s.log.WarnContext(ctx, "webhook signature rejected",
				slog.String("provider", string(provider)))
			http.Error(w, "invalid signature", http.StatusBadRequest)

		case errors.Is(err, billing.ErrMalformedPayload),
			errors.Is(err, billing.ErrMissingCorrelationKey):
			// Full payload is kept for debugging; it failed parsing, so the
			// structured fields are not available.
			s.log.WarnContext(ctx, "webhook payload rejected",
				slog.String("provider", string(provider)),
				slog.Any("error", err),
				slog.String("payload", string(rawBody)))
			http.Error(w, "invalid payload", http.StatusBadRequest)

		case errors.Is(err, billing.ErrUnsupportedEvent):
			// Verified but not an event this system processes. Acknowledge
			// so the provider does not retry.
			s.log.DebugContext(ctx, "unsupported webhook event acknowledged",
				slog.String("provider", string(provider)))
			w.WriteHeader(http.StatusOK)

		case errors.Is(err, subscription.ErrDuplicateEvent),
			errors.Is(err, subscription.ErrStaleEvent),
			errors.Is(err, subscription.ErrInvalidTransition):
			// Redelivering an event we will never apply cannot help.
			w.WriteHeader(http.StatusOK)

		case errors.Is(err, subscription.ErrUnresolvedUser):
			// Already flagged for manual reconciliation by the service.
			w.WriteHeader(http.StatusOK)

		case errors.Is(err, billing.ErrUnknownProvider):
			http.Error(w, "unknown provider", http.StatusNotFound)

		default:
			s.log.ErrorContext(ctx, "webhook processing failed",
				slog.String("provider", string(provider)),
				slog.Any("error", err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
