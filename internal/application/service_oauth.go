package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// OAuthBegin starts an Authorization-Code-with-PKCE flow and persists the
// state binding for the callback.
func (s *Service) OAuthBegin(ctx context.Context, provider domain.Provider, redirectURI string) (OAuthBeginResponse, error) {
	auth, err := s.oauth.BeginAuthorization(provider, redirectURI)
	if err != nil {
		return OAuthBeginResponse{}, err
	}

	if err := s.states.Put(ctx, auth.State, ports.OAuthState{
		Provider:     provider,
		CodeVerifier: auth.CodeVerifier,
		RedirectURI:  redirectURI,
		CreatedAt:    s.nowFn(),
	}, s.cfg.OAuthStateTTL); err != nil {
		return OAuthBeginResponse{}, storeErr(err)
	}

	return OAuthBeginResponse{AuthorizationURL: auth.URL, State: auth.State}, nil
}

// OAuthCallback completes the flow: consumes the state (single use),
// exchanges the code, fetches the profile, and resolves it to a local
// account. OAuth login auto-registers; federated identities are trusted for
// email ownership.
func (s *Service) OAuthCallback(ctx context.Context, req OAuthCallbackRequest) (OAuthCallbackResponse, error) {
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.State) == "" {
		return OAuthCallbackResponse{}, fmt.Errorf("%w: code and state are required", domain.ErrInvalidInput)
	}

	state, err := s.states.Consume(ctx, req.State)
	if err != nil {
		return OAuthCallbackResponse{}, storeErr(err)
	}
	if state == nil {
		return OAuthCallbackResponse{}, fmt.Errorf("%w: unknown or already used state", domain.ErrAuthentication)
	}
	now := s.nowFn()
	if now.Sub(state.CreatedAt) > s.cfg.OAuthStateTTL {
		return OAuthCallbackResponse{}, fmt.Errorf("%w: authorization state expired", domain.ErrAuthentication)
	}
	if state.Provider != req.Provider {
		return OAuthCallbackResponse{}, fmt.Errorf("%w: provider mismatch", domain.ErrAuthentication)
	}

	providerTokens, err := s.oauth.ExchangeCode(ctx, req.Provider, req.Code, state.CodeVerifier, state.RedirectURI)
	if err != nil {
		return OAuthCallbackResponse{}, err
	}
	profile, err := s.oauth.FetchProfile(ctx, req.Provider, providerTokens.AccessToken)
	if err != nil {
		return OAuthCallbackResponse{}, err
	}

	account, isNew, err := s.resolveProfile(ctx, req.Provider, profile)
	if err != nil {
		return OAuthCallbackResponse{}, err
	}

	tokens, err := s.startSession(ctx, account, sessionMeta{
		DeviceName: req.DeviceName,
		DeviceOS:   req.DeviceOS,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	})
	if err != nil {
		return OAuthCallbackResponse{}, err
	}
	if err := s.users.UpdateLastLogin(ctx, account.ID, s.nowFn()); err != nil {
		return OAuthCallbackResponse{}, storeErr(err)
	}

	return OAuthCallbackResponse{
		Account:   toAccountInfo(account),
		Tokens:    tokens,
		IsNewUser: isNew,
	}, nil
}

// resolveProfile maps a provider identity to a local account. Lookup order:
// exact provider binding, then email-based linking, then registration.
func (s *Service) resolveProfile(ctx context.Context, provider domain.Provider, profile ports.Profile) (domain.Account, bool, error) {
	account, err := s.users.FindByProvider(ctx, provider, profile.ProviderID)
	if err == nil {
		if !account.CanLogin() {
			return domain.Account{}, false, fmt.Errorf("%w: account is %s", domain.ErrAuthorization, account.Status)
		}
		return account, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, false, storeErr(err)
	}

	account, err = s.users.FindByEmail(ctx, profile.Email)
	if err == nil {
		return s.linkProfile(ctx, account, provider, profile)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, false, storeErr(err)
	}

	return s.registerFederated(ctx, provider, profile)
}

// linkProfile attaches the federation binding to an existing account with a
// matching email. An account already bound to a different federated
// identity is never overwritten: a matching email on another provider must
// not be a takeover path.
func (s *Service) linkProfile(ctx context.Context, account domain.Account, provider domain.Provider, profile ports.Profile) (domain.Account, bool, error) {
	if account.ProviderID != "" && (account.Provider != provider || account.ProviderID != profile.ProviderID) {
		return domain.Account{}, false, fmt.Errorf("%w: account is linked to another provider", domain.ErrConflict)
	}
	if !account.CanLogin() && account.Status != domain.StatusPendingVerification {
		return domain.Account{}, false, fmt.Errorf("%w: account is %s", domain.ErrAuthorization, account.Status)
	}

	now := s.nowFn()
	if account.ProviderID == "" {
		patch := ports.AccountPatch{
			Provider:   &provider,
			ProviderID: &profile.ProviderID,
		}
		updated, err := s.users.Update(ctx, account.ID, patch, now)
		if err != nil {
			return domain.Account{}, false, storeErr(err)
		}
		account = updated
	}
	if !account.EmailVerified() {
		if err := s.users.VerifyEmail(ctx, account.ID, now); err != nil {
			return domain.Account{}, false, storeErr(err)
		}
		refreshed, err := s.users.FindByID(ctx, account.ID)
		if err != nil {
			return domain.Account{}, false, storeErr(err)
		}
		account = refreshed
	}
	return account, false, nil
}

func (s *Service) registerFederated(ctx context.Context, provider domain.Provider, profile ports.Profile) (domain.Account, bool, error) {
	now := s.nowFn()
	account, err := s.users.Create(ctx, ports.CreateAccountParams{
		Email:           profile.Email,
		FirstName:       firstNameFrom(profile),
		LastName:        profile.LastName,
		Role:            s.cfg.DefaultRole,
		Status:          domain.StatusActive,
		Provider:        provider,
		ProviderID:      profile.ProviderID,
		EmailVerifiedAt: &now,
		CreatedAt:       now,
	})
	if err != nil {
		return domain.Account{}, false, storeErr(err)
	}

	if err := s.notifier.SendWelcomeEmail(ctx, account.Email, account.FirstName); err != nil {
		s.opLogger("oauth_callback").WarnContext(ctx, "welcome email delivery failed",
			"outcome", "degraded", "error", err.Error())
	}
	return account, true, nil
}

func firstNameFrom(profile ports.Profile) string {
	if profile.FirstName != "" {
		return profile.FirstName
	}
	// Providers may send a whitespace-only display name.
	if fields := strings.Fields(profile.DisplayName); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
