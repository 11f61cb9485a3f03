package ports

import (
	"context"
	"time"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

// OAuthState is the ephemeral CSRF/PKCE binding persisted between the
// authorize redirect and the provider callback.
type OAuthState struct {
	Provider     domain.Provider `json:"provider"`
	CodeVerifier string          `json:"code_verifier"`
	RedirectURI  string          `json:"redirect_uri"`
	CreatedAt    time.Time       `json:"created_at"`
}

// OAuthStateStore manages single-use OAuth state. Consume must be an atomic
// check-and-delete so a replayed callback observes the state as absent.
type OAuthStateStore interface {
	Put(ctx context.Context, state string, value OAuthState, ttl time.Duration) error
	Consume(ctx context.Context, state string) (*OAuthState, error)
}

// RateLimitStore is a pluggable counter backend for request throttling.
// Allow reports whether one more event under the key fits inside the window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
