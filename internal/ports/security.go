package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenPurpose discriminates what a signed token may be used for. A token
// verified under one purpose is rejected for every other purpose even if
// the signature is valid.
type TokenPurpose string

const (
	PurposeAccess            TokenPurpose = "access"
	PurposeRefresh           TokenPurpose = "refresh"
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// TokenClaims is the decoded content of a signed token.
type TokenClaims struct {
	AccountID uuid.UUID
	Email     string
	Role      domain.Role
	Purpose   TokenPurpose
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer mints and verifies purpose-scoped signed tokens. Each purpose
// has its own signing secret and expiry policy.
type TokenIssuer interface {
	Issue(purpose TokenPurpose, accountID uuid.UUID, email string, role domain.Role) (string, error)
	Verify(purpose TokenPurpose, token string) (TokenClaims, error)
	TTL(purpose TokenPurpose) time.Duration
}

// Authorization is the result of starting an OAuth flow: the URL to redirect
// the user to plus the secrets the caller must persist under the state.
type Authorization struct {
	URL          string
	State        string
	CodeVerifier string
}

// ProviderTokens is the provider token-endpoint response.
type ProviderTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Profile is the provider userinfo response normalized to a common shape.
// Email is the join key to local accounts and is mandatory.
type Profile struct {
	ProviderID    string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	DisplayName   string
	AvatarURL     string
}

// OAuthClient drives the Authorization-Code-with-PKCE flow against a
// configured provider.
type OAuthClient interface {
	BeginAuthorization(provider domain.Provider, redirectURI string) (Authorization, error)
	ExchangeCode(ctx context.Context, provider domain.Provider, code, codeVerifier, redirectURI string) (ProviderTokens, error)
	FetchProfile(ctx context.Context, provider domain.Provider, accessToken string) (Profile, error)
}
