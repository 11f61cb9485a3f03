package contract

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweetcrumb/backoffice-auth/internal/adapters/security"
	"github.com/sweetcrumb/backoffice-auth/internal/application"
	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// newContractService wires the application service with the real security
// adapters so the surface under test signs and checks genuine tokens.
func newContractService() (*application.Service, *recordingNotifier) {
	issuer, err := security.NewJWTIssuer(map[ports.TokenPurpose]security.PurposeKey{
		ports.PurposeAccess:            {Secret: []byte("contract-access-secret"), TTL: 15 * time.Minute},
		ports.PurposeRefresh:           {Secret: []byte("contract-refresh-secret"), TTL: 24 * time.Hour},
		ports.PurposeEmailVerification: {Secret: []byte("contract-verify-secret"), TTL: 24 * time.Hour},
		ports.PurposePasswordReset:     {Secret: []byte("contract-reset-secret"), TTL: time.Hour},
	})
	if err != nil {
		panic(err)
	}

	notifier := &recordingNotifier{}
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			DefaultRole:   domain.RoleCustomer,
			OAuthStateTTL: 10 * time.Minute,
		},
		Users:    &contractUsers{accounts: map[uuid.UUID]domain.Account{}},
		Sessions: &contractSessions{items: map[uuid.UUID]domain.Session{}},
		States:   &contractStates{items: map[string]ports.OAuthState{}},
		OAuth:    contractOAuth{},
		Hasher:   security.NewBcryptHasher(4),
		Tokens:   issuer,
		Notifier: notifier,
	})
	return svc, notifier
}

type recordingNotifier struct {
	mu            sync.Mutex
	verifications map[string]string
	resets        map[string]string
}

func (n *recordingNotifier) SendVerificationEmail(_ context.Context, email, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.verifications == nil {
		n.verifications = map[string]string{}
	}
	n.verifications[email] = token
	return nil
}

func (n *recordingNotifier) SendPasswordResetEmail(_ context.Context, email, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.resets == nil {
		n.resets = map[string]string{}
	}
	n.resets[email] = token
	return nil
}

func (n *recordingNotifier) SendWelcomeEmail(context.Context, string, string) error { return nil }

func (n *recordingNotifier) SendSecurityAlert(context.Context, string, string, string) error {
	return nil
}

func (n *recordingNotifier) verificationToken(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verifications[email]
}

type contractUsers struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]domain.Account
}

func (c *contractUsers) Create(_ context.Context, params ports.CreateAccountParams) (domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.accounts {
		if a.Email == params.Email {
			return domain.Account{}, domain.ErrConflict
		}
	}
	a := domain.Account{
		ID:              uuid.New(),
		Email:           params.Email,
		PasswordHash:    params.PasswordHash,
		FirstName:       params.FirstName,
		LastName:        params.LastName,
		Role:            params.Role,
		Status:          params.Status,
		Provider:        params.Provider,
		ProviderID:      params.ProviderID,
		EmailVerifiedAt: params.EmailVerifiedAt,
		CreatedAt:       params.CreatedAt,
		UpdatedAt:       params.CreatedAt,
	}
	c.accounts[a.ID] = a
	return a, nil
}

func (c *contractUsers) FindByEmail(_ context.Context, email string) (domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}

func (c *contractUsers) FindByID(_ context.Context, accountID uuid.UUID) (domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[accountID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

func (c *contractUsers) FindByProvider(_ context.Context, provider domain.Provider, providerID string) (domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.accounts {
		if a.Provider == provider && a.ProviderID == providerID && providerID != "" {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}

func (c *contractUsers) Update(_ context.Context, accountID uuid.UUID, patch ports.AccountPatch, updatedAt time.Time) (domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[accountID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	if patch.PasswordHash != nil {
		a.PasswordHash = *patch.PasswordHash
	}
	if patch.FirstName != nil {
		a.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		a.LastName = *patch.LastName
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.Provider != nil {
		a.Provider = *patch.Provider
	}
	if patch.ProviderID != nil {
		a.ProviderID = *patch.ProviderID
	}
	a.UpdatedAt = updatedAt
	c.accounts[accountID] = a
	return a, nil
}

func (c *contractUsers) IncrementLoginAttempts(_ context.Context, accountID uuid.UUID, failedAt time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[accountID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	a.FailedAttempts++
	a.LastFailedLoginAt = &failedAt
	c.accounts[accountID] = a
	return a.FailedAttempts, nil
}

func (c *contractUsers) ResetLoginAttempts(_ context.Context, accountID uuid.UUID, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	a.FailedAttempts = 0
	a.LockUntil = nil
	a.LastFailedLoginAt = nil
	a.UpdatedAt = at
	c.accounts[accountID] = a
	return nil
}

func (c *contractUsers) LockAccount(_ context.Context, accountID uuid.UUID, lockUntil time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	a.LockUntil = &lockUntil
	c.accounts[accountID] = a
	return nil
}

func (c *contractUsers) UpdateLastLogin(_ context.Context, accountID uuid.UUID, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	a.LastLoginAt = &at
	c.accounts[accountID] = a
	return nil
}

func (c *contractUsers) VerifyEmail(_ context.Context, accountID uuid.UUID, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	a.EmailVerifiedAt = &at
	if a.Status == domain.StatusPendingVerification {
		a.Status = domain.StatusActive
	}
	c.accounts[accountID] = a
	return nil
}

func (c *contractUsers) SoftDelete(_ context.Context, accountID uuid.UUID, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[accountID]
	if !ok || a.DeletedAt != nil {
		return domain.ErrNotFound
	}
	a.DeletedAt = &at
	a.Status = domain.StatusInactive
	c.accounts[accountID] = a
	return nil
}

type contractSessions struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.Session
}

func (c *contractSessions) Create(_ context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := domain.Session{
		ID:           uuid.New(),
		AccountID:    params.AccountID,
		RefreshToken: params.RefreshToken,
		TokenClass:   params.TokenClass,
		DeviceName:   params.DeviceName,
		DeviceOS:     params.DeviceOS,
		IPAddress:    params.IPAddress,
		UserAgent:    params.UserAgent,
		ExpiresAt:    params.ExpiresAt,
		CreatedAt:    params.CreatedAt,
		UpdatedAt:    params.CreatedAt,
	}
	c.items[s.ID] = s
	return s, nil
}

func (c *contractSessions) FindByID(_ context.Context, sessionID uuid.UUID) (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.items[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (c *contractSessions) FindByRefreshToken(_ context.Context, refreshToken string) (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.items {
		if s.RefreshToken == refreshToken {
			return s, nil
		}
	}
	return domain.Session{}, domain.ErrNotFound
}

func (c *contractSessions) Rotate(_ context.Context, sessionID uuid.UUID, oldToken, newToken string, newExpiry, at time.Time) (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.items[sessionID]
	if !ok || s.Revoked || s.RefreshToken != oldToken {
		return domain.Session{}, domain.ErrNotFound
	}
	s.RefreshToken = newToken
	s.ExpiresAt = newExpiry
	s.UpdatedAt = at
	c.items[sessionID] = s
	return s, nil
}

func (c *contractSessions) Revoke(_ context.Context, sessionID uuid.UUID, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.items[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Revoked = true
	s.UpdatedAt = at
	c.items[sessionID] = s
	return nil
}

func (c *contractSessions) RevokeByRefreshToken(_ context.Context, refreshToken string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, s := range c.items {
		if s.RefreshToken == refreshToken {
			s.Revoked = true
			s.UpdatedAt = at
			c.items[id] = s
			return nil
		}
	}
	return domain.ErrNotFound
}

func (c *contractSessions) RevokeAllForAccount(_ context.Context, accountID uuid.UUID, at time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var count int64
	for id, s := range c.items {
		if s.AccountID == accountID && !s.Revoked {
			s.Revoked = true
			s.UpdatedAt = at
			c.items[id] = s
			count++
		}
	}
	return count, nil
}

func (c *contractSessions) ListByAccount(_ context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Session
	for _, s := range c.items {
		if s.AccountID == accountID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (c *contractSessions) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var count int64
	for id, s := range c.items {
		if s.ExpiresAt.Before(before) {
			delete(c.items, id)
			count++
		}
	}
	return count, nil
}

type contractStates struct {
	mu    sync.Mutex
	items map[string]ports.OAuthState
}

func (c *contractStates) Put(_ context.Context, state string, value ports.OAuthState, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[state] = value
	return nil
}

func (c *contractStates) Consume(_ context.Context, state string) (*ports.OAuthState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[state]
	if !ok {
		return nil, nil
	}
	delete(c.items, state)
	return &v, nil
}

type contractOAuth struct{}

func (contractOAuth) BeginAuthorization(provider domain.Provider, _ string) (ports.Authorization, error) {
	state := uuid.NewString()
	return ports.Authorization{
		URL:          "https://provider.example/" + string(provider) + "/authorize?state=" + state,
		State:        state,
		CodeVerifier: uuid.NewString(),
	}, nil
}

func (contractOAuth) ExchangeCode(_ context.Context, _ domain.Provider, code, _, _ string) (ports.ProviderTokens, error) {
	return ports.ProviderTokens{AccessToken: "token:" + code, ExpiresIn: 3600}, nil
}

func (contractOAuth) FetchProfile(_ context.Context, provider domain.Provider, _ string) (ports.Profile, error) {
	return ports.Profile{
		ProviderID:    string(provider) + "-sub-1",
		Email:         "federated@example.com",
		EmailVerified: true,
		FirstName:     "Fed",
	}, nil
}
