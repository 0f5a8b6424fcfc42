package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures the billing module routes.
type RouterOptions struct {
	// Webhooks receives payment provider webhook deliveries.
	Webhooks Mountable

	// Middleware is applied to every billing route when set, e.g. a
	// ratelimit.Middleware keyed by caller IP.
	Middleware []func(http.Handler) http.Handler
}

// Router creates the billing module router.
//
// Example:
//
//	webhooks := billing.NewWebhookService(svc)
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billing.Router(billing.RouterOptions{
//	    Webhooks: webhooks,
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	for _, mw := range opts.Middleware {
		r.Use(mw)
	}

	if opts.Webhooks != nil {
		r.Mount("/webhooks", opts.Webhooks.Handle())
	}

	return r
}
