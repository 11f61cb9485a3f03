package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// PurposeKey holds the signing secret and lifetime for one token purpose.
type PurposeKey struct {
	Secret []byte
	TTL    time.Duration
}

// JWTIssuer implements HS256 token signing/verification with per-purpose
// secrets. The embedded purpose claim is read before the signature check so
// a token presented under the wrong purpose reports a purpose mismatch, not
// a signature failure, regardless of how the secrets are configured.
type JWTIssuer struct {
	keys  map[ports.TokenPurpose]PurposeKey
	nowFn func() time.Time
}

// NewJWTIssuer builds an issuer from per-purpose keys. Every purpose used at
// runtime must be configured; a missing purpose is a startup error.
func NewJWTIssuer(keys map[ports.TokenPurpose]PurposeKey) (*JWTIssuer, error) {
	for _, purpose := range []ports.TokenPurpose{
		ports.PurposeAccess,
		ports.PurposeRefresh,
		ports.PurposeEmailVerification,
		ports.PurposePasswordReset,
	} {
		key, ok := keys[purpose]
		if !ok || len(key.Secret) == 0 {
			return nil, fmt.Errorf("jwt: missing secret for purpose %q", purpose)
		}
		if key.TTL <= 0 {
			return nil, fmt.Errorf("jwt: missing ttl for purpose %q", purpose)
		}
	}
	return &JWTIssuer{keys: keys, nowFn: func() time.Time { return time.Now().UTC() }}, nil
}

type purposeClaims struct {
	Email   string `json:"email"`
	Role    string `json:"role"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

func (i *JWTIssuer) Issue(purpose ports.TokenPurpose, accountID uuid.UUID, email string, role domain.Role) (string, error) {
	key, ok := i.keys[purpose]
	if !ok {
		return "", fmt.Errorf("jwt: unknown purpose %q", purpose)
	}
	now := i.nowFn()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, purposeClaims{
		Email:   email,
		Role:    string(role),
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.TTL)),
		},
	})
	return token.SignedString(key.Secret)
}

func (i *JWTIssuer) Verify(purpose ports.TokenPurpose, raw string) (ports.TokenClaims, error) {
	key, ok := i.keys[purpose]
	if !ok {
		return ports.TokenClaims{}, fmt.Errorf("jwt: unknown purpose %q", purpose)
	}

	// The purpose claim decides which secret a token was signed with, so it
	// must be read before signature verification can pick a key. The
	// unverified claims are trusted only far enough to reject a mismatch;
	// everything else waits for the signed parse below.
	var peek purposeClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &peek); err != nil {
		return ports.TokenClaims{}, domain.ErrTokenInvalid
	}
	if peek.Purpose != string(purpose) {
		return ports.TokenClaims{}, domain.ErrWrongPurpose
	}

	parsed, err := jwt.ParseWithClaims(raw, &purposeClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return key.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.TokenClaims{}, domain.ErrTokenExpired
		}
		return ports.TokenClaims{}, domain.ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*purposeClaims)
	if !ok || !parsed.Valid {
		return ports.TokenClaims{}, domain.ErrTokenInvalid
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.TokenClaims{}, domain.ErrTokenInvalid
	}

	out := ports.TokenClaims{
		AccountID: accountID,
		Email:     claims.Email,
		Role:      domain.Role(claims.Role),
		Purpose:   ports.TokenPurpose(claims.Purpose),
		TokenID:   claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}

func (i *JWTIssuer) TTL(purpose ports.TokenPurpose) time.Duration {
	return i.keys[purpose].TTL
}
