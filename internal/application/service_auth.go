package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// Register creates a local account in pending_verification and queues the
// verification email. It never logs the caller in: email ownership is
// unproven for local signups, unlike OAuth registration.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return RegisterResponse{}, err
	}

	report := domain.CheckPasswordStrength(req.Password)
	if !report.OK {
		return RegisterResponse{}, fmt.Errorf("%w: password %s", domain.ErrInvalidInput, strings.Join(report.Violations, "; "))
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return RegisterResponse{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return RegisterResponse{}, storeErr(err)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResponse{}, err
	}

	account, err := s.users.Create(ctx, ports.CreateAccountParams{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         s.cfg.DefaultRole,
		Status:       domain.StatusPendingVerification,
		Provider:     domain.ProviderLocal,
		CreatedAt:    s.nowFn(),
	})
	if err != nil {
		return RegisterResponse{}, storeErr(err)
	}

	s.sendVerification(ctx, account)

	return RegisterResponse{AccountID: account.ID, Status: account.Status}, nil
}

// Login authenticates a password credential, applying the lockout policy
// around every attempt.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return LoginResponse{}, err
	}

	account, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return LoginResponse{}, domain.ErrAuthentication
		}
		return LoginResponse{}, storeErr(err)
	}

	now := s.nowFn()
	if domain.IsLocked(account.LockUntil, now) {
		minutes := int(domain.RemainingLock(account.LockUntil, now) / time.Minute)
		return LoginResponse{}, fmt.Errorf("%w: try again in %d minutes", domain.ErrAccountLocked, minutes)
	}

	if domain.ShouldResetAttempts(account.LastFailedLoginAt, now) && account.FailedAttempts > 0 {
		if err := s.users.ResetLoginAttempts(ctx, account.ID, now); err != nil {
			return LoginResponse{}, storeErr(err)
		}
		account.FailedAttempts = 0
	}

	if !account.HasPassword() {
		return LoginResponse{}, fmt.Errorf("%w: this account signs in with %s", domain.ErrAuthorization, account.Provider)
	}

	if err := s.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		return LoginResponse{}, s.recordFailedAttempt(ctx, account)
	}

	if account.Provider == domain.ProviderLocal && !account.EmailVerified() {
		return LoginResponse{}, fmt.Errorf("%w: email not verified", domain.ErrAuthorization)
	}
	if !account.CanLogin() {
		return LoginResponse{}, fmt.Errorf("%w: account is %s", domain.ErrAuthorization, account.Status)
	}

	tokens, err := s.startSession(ctx, account, sessionMeta{
		DeviceName: req.DeviceName,
		DeviceOS:   req.DeviceOS,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	})
	if err != nil {
		return LoginResponse{}, err
	}

	if account.FailedAttempts > 0 {
		if err := s.users.ResetLoginAttempts(ctx, account.ID, s.nowFn()); err != nil {
			return LoginResponse{}, storeErr(err)
		}
	}
	if err := s.users.UpdateLastLogin(ctx, account.ID, s.nowFn()); err != nil {
		return LoginResponse{}, storeErr(err)
	}

	return LoginResponse{Account: toAccountInfo(account), Tokens: tokens}, nil
}

// recordFailedAttempt increments the failure counter atomically and locks
// the account once the threshold is crossed.
func (s *Service) recordFailedAttempt(ctx context.Context, account domain.Account) error {
	now := s.nowFn()
	count, err := s.users.IncrementLoginAttempts(ctx, account.ID, now)
	if err != nil {
		return storeErr(err)
	}
	if domain.ShouldLock(count) {
		lockUntil := domain.LockExpiry(now)
		if err := s.users.LockAccount(ctx, account.ID, lockUntil); err != nil {
			return storeErr(err)
		}
		s.sendSecurityAlert(ctx, account.Email, "Account locked",
			fmt.Sprintf("Your account was locked for %d minutes after repeated failed sign-in attempts.", int(domain.LockoutDuration/time.Minute)))
		return fmt.Errorf("%w: too many failed attempts", domain.ErrAccountLocked)
	}
	remaining := domain.FailedLoginThreshold - count
	return fmt.Errorf("%w (%d attempts remaining)", domain.ErrAuthentication, remaining)
}

// RefreshToken rotates a refresh-token-backed session. The session is loaded
// by the exact token value so the grant is bound to the issued token, not to
// the decoded subject.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	if _, err := s.tokens.Verify(ports.PurposeRefresh, refreshToken); err != nil {
		return TokenPair{}, err
	}

	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, fmt.Errorf("%w: unknown refresh token", domain.ErrAuthentication)
		}
		return TokenPair{}, storeErr(err)
	}

	now := s.nowFn()
	if session.Revoked {
		return TokenPair{}, fmt.Errorf("%w: session revoked", domain.ErrAuthentication)
	}
	if !session.ExpiresAt.After(now) {
		// Revoke before reporting expiry so the row cannot linger usable
		// through a race.
		if err := s.sessions.Revoke(ctx, session.ID, now); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, storeErr(err)
		}
		return TokenPair{}, fmt.Errorf("%w: session expired", domain.ErrAuthentication)
	}

	account, err := s.users.FindByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, fmt.Errorf("%w: account no longer exists", domain.ErrAuthentication)
		}
		return TokenPair{}, storeErr(err)
	}
	if !account.CanLogin() {
		// A deactivated account must not retain any usable grants.
		if _, err := s.sessions.RevokeAllForAccount(ctx, account.ID, now); err != nil {
			return TokenPair{}, storeErr(err)
		}
		return TokenPair{}, fmt.Errorf("%w: account is %s", domain.ErrAuthorization, account.Status)
	}

	accessToken, err := s.tokens.Issue(ports.PurposeAccess, account.ID, account.Email, account.Role)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	newRefresh, err := s.tokens.Issue(ports.PurposeRefresh, account.ID, account.Email, account.Role)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	newExpiry := now.Add(s.tokens.TTL(ports.PurposeRefresh))
	if _, err := s.sessions.Rotate(ctx, session.ID, refreshToken, newRefresh, newExpiry, now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Lost a concurrent rotation race: the token was already used.
			return TokenPair{}, fmt.Errorf("%w: refresh token already used", domain.ErrAuthentication)
		}
		return TokenPair{}, storeErr(err)
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    now.Add(s.tokens.TTL(ports.PurposeAccess)),
	}, nil
}

// Logout revokes the session bound to the refresh token. An unknown token is
// treated as already logged out.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	err := s.sessions.RevokeByRefreshToken(ctx, refreshToken, s.nowFn())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return storeErr(err)
	}
	return nil
}

// LogoutAll revokes every session the account holds and returns how many
// were live.
func (s *Service) LogoutAll(ctx context.Context, accountID uuid.UUID) (int64, error) {
	count, err := s.sessions.RevokeAllForAccount(ctx, accountID, s.nowFn())
	if err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}

// ValidateAccessToken is the building block for request authentication. The
// signature alone is insufficient: the account must still exist and be
// active, since it can be deactivated after the token was issued.
func (s *Service) ValidateAccessToken(ctx context.Context, token string) (ports.TokenClaims, error) {
	claims, err := s.tokens.Verify(ports.PurposeAccess, token)
	if err != nil {
		return ports.TokenClaims{}, err
	}
	account, err := s.users.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ports.TokenClaims{}, fmt.Errorf("%w: account no longer exists", domain.ErrAuthentication)
		}
		return ports.TokenClaims{}, storeErr(err)
	}
	if !account.CanLogin() {
		return ports.TokenClaims{}, fmt.Errorf("%w: account is %s", domain.ErrAuthorization, account.Status)
	}
	return claims, nil
}

type sessionMeta struct {
	DeviceName string
	DeviceOS   string
	IPAddress  string
	UserAgent  string
}

// startSession issues a token pair and persists the session carrying the
// refresh token. A session created without the tokens reaching the client is
// harmless; it simply expires.
func (s *Service) startSession(ctx context.Context, account domain.Account, meta sessionMeta) (TokenPair, error) {
	accessToken, err := s.tokens.Issue(ports.PurposeAccess, account.ID, account.Email, account.Role)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.tokens.Issue(ports.PurposeRefresh, account.ID, account.Email, account.Role)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	now := s.nowFn()
	_, err = s.sessions.Create(ctx, ports.SessionCreateParams{
		AccountID:    account.ID,
		RefreshToken: refreshToken,
		TokenClass:   string(ports.PurposeRefresh),
		DeviceName:   meta.DeviceName,
		DeviceOS:     meta.DeviceOS,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		ExpiresAt:    now.Add(s.tokens.TTL(ports.PurposeRefresh)),
		CreatedAt:    now,
	})
	if err != nil {
		return TokenPair{}, storeErr(err)
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.tokens.TTL(ports.PurposeAccess)),
	}, nil
}
