package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sweetcrumb/backoffice-auth/internal/application"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// RateLimits carries the per-endpoint throttle budgets.
type RateLimits struct {
	LoginPerMinute    int
	RecoveryPerMinute int
}

// Handler is the HTTP adapter entrypoint for auth use-cases.
type Handler struct {
	service *application.Service
	metrics *Metrics
}

// NewHandler constructs an HTTP handler bound to the application service.
// metrics may be nil when scraping is disabled.
func NewHandler(service *application.Service, metrics *Metrics) *Handler {
	return &Handler{service: service, metrics: metrics}
}

// NewRouter registers the auth HTTP routes and middleware stack.
func NewRouter(handler *Handler, limiter ports.RateLimitStore, limits RateLimits) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	if handler.metrics != nil {
		r.Use(handler.metrics.middleware)
	}

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	loginLimit := rateLimitMiddleware(limiter, "login", limits.LoginPerMinute, time.Minute)
	recoveryLimit := rateLimitMiddleware(limiter, "recovery", limits.RecoveryPerMinute, time.Minute)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.With(loginLimit).Post("/login", handler.login)
		r.Post("/refresh", handler.refresh)
		r.Post("/logout", handler.logout)

		r.With(recoveryLimit).Post("/password/forgot", handler.forgotPassword)
		r.With(recoveryLimit).Post("/password/reset", handler.resetPassword)
		r.Post("/email/verify", handler.verifyEmail)
		r.With(recoveryLimit).Post("/email/resend", handler.resendVerification)

		r.Get("/oauth/{provider}/authorize", handler.oauthAuthorize)
		r.Get("/oauth/{provider}/callback", handler.oauthCallback)
		r.Post("/oauth/{provider}/callback", handler.oauthCallback)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/me", handler.me)
			r.Post("/password/change", handler.changePassword)
			r.Post("/logout/all", handler.logoutAll)
			r.Get("/sessions", handler.listSessions)
			r.Delete("/sessions/{session_id}", handler.revokeSession)
			r.Delete("/account", handler.deactivateAccount)
		})
	})

	return r
}
