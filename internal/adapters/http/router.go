package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clipstage/share-access-service/internal/application"
)

// Handler is the HTTP adapter entrypoint for share access use-cases.
// Keeping only the application dependency here preserves clean adapter
// boundaries.
type Handler struct {
	service        *application.Service
	internalAPIKey string
	cookieSecure   bool
}

// HandlerOptions carries transport-level settings the application layer
// has no business knowing about.
type HandlerOptions struct {
	InternalAPIKey string
	CookieSecure   bool
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service, opts HandlerOptions) *Handler {
	return &Handler{
		service:        service,
		internalAPIKey: opts.InternalAPIKey,
		cookieSecure:   opts.CookieSecure,
	}
}

// NewRouter registers the share access routes and middleware stack.
// Centralizing routes here keeps error and auth behavior consistent
// across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/share/v1", func(r chi.Router) {
		r.Post("/shares/{share_id}/password/verify", handler.verifyPassword)
		r.Post("/shares/{share_id}/otp/request", handler.requestOTP)
		r.Post("/shares/{share_id}/otp/verify", handler.verifyOTP)
		r.Get("/shares/{share_id}/auth-status", handler.authStatus)
		r.Post("/content-tokens", handler.issueContentToken)
		r.Delete("/sessions/current", handler.revokeSession)
	})

	r.Route("/internal/v1", func(r chi.Router) {
		r.Use(handler.internalAuthMiddleware)
		r.Get("/security-events", handler.listSecurityEvents)
	})

	return r
}
