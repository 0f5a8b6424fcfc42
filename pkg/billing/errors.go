package billing

import "errors"

var (
	// ErrInvalidSignature indicates the webhook MAC did not match.
	// Log provider and event type only, never the shared secret.
	ErrInvalidSignature = errors.New("webhook signature verification failed")

	// ErrMalformedPayload indicates the body does not match the provider's
	// schema. Usually a provider contract change; log the full payload.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrMissingCorrelationKey indicates no customer email could be
	// extracted, so the event cannot be resolved to a user.
	ErrMissingCorrelationKey = errors.New("webhook payload has no customer email")

	// ErrUnsupportedEvent indicates a provider event type this system does
	// not process. Acknowledged and skipped, not an error at the HTTP boundary.
	ErrUnsupportedEvent = errors.New("unsupported webhook event type")

	ErrMissingWebhookSecret = errors.New("webhook secret is required")
	ErrUnknownProvider      = errors.New("unknown billing provider")
)
