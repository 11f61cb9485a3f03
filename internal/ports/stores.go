package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

// CreateAccountParams captures the inputs for account creation. Federated
// accounts carry a provider binding and no password hash; local accounts the
// opposite.
type CreateAccountParams struct {
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	Role            domain.Role
	Status          domain.Status
	Provider        domain.Provider
	ProviderID      string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
}

// AccountPatch is a partial field update. Nil pointers leave the stored
// value untouched.
type AccountPatch struct {
	PasswordHash *string
	FirstName    *string
	LastName     *string
	Status       *domain.Status
	Provider     *domain.Provider
	ProviderID   *string
}

// UserStore defines persistence operations for accounts. Lockout counter
// methods must be atomic read-modify-writes so concurrent failures cannot
// under-count past the lock threshold.
type UserStore interface {
	Create(ctx context.Context, params CreateAccountParams) (domain.Account, error)
	FindByEmail(ctx context.Context, email string) (domain.Account, error)
	FindByID(ctx context.Context, accountID uuid.UUID) (domain.Account, error)
	FindByProvider(ctx context.Context, provider domain.Provider, providerID string) (domain.Account, error)
	Update(ctx context.Context, accountID uuid.UUID, patch AccountPatch, updatedAt time.Time) (domain.Account, error)
	IncrementLoginAttempts(ctx context.Context, accountID uuid.UUID, failedAt time.Time) (int, error)
	ResetLoginAttempts(ctx context.Context, accountID uuid.UUID, at time.Time) error
	LockAccount(ctx context.Context, accountID uuid.UUID, lockUntil time.Time) error
	UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error
	VerifyEmail(ctx context.Context, accountID uuid.UUID, at time.Time) error
	SoftDelete(ctx context.Context, accountID uuid.UUID, at time.Time) error
}

// SessionCreateParams captures metadata required to create a session record.
// Device and network fields are stored for auditability.
type SessionCreateParams struct {
	AccountID    uuid.UUID
	RefreshToken string
	TokenClass   string
	DeviceName   string
	DeviceOS     string
	IPAddress    string
	UserAgent    string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// SessionStore manages refresh-token-backed sessions. Rotate must be a
// compare-and-update keyed on the session id and current token so two
// concurrent rotations of the same refresh token yield exactly one success;
// the loser observes ErrNotFound and fails closed.
type SessionStore interface {
	Create(ctx context.Context, params SessionCreateParams) (domain.Session, error)
	FindByID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (domain.Session, error)
	Rotate(ctx context.Context, sessionID uuid.UUID, oldToken, newToken string, newExpiry, at time.Time) (domain.Session, error)
	Revoke(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	RevokeByRefreshToken(ctx context.Context, refreshToken string, at time.Time) error
	RevokeAllForAccount(ctx context.Context, accountID uuid.UUID, at time.Time) (int64, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Session, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
