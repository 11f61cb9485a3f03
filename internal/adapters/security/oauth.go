package security

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// OAuthProviderConfig is the static endpoint/credential set for one
// federation provider.
type OAuthProviderConfig struct {
	ClientID         string
	ClientSecret     string
	AuthorizationURL string
	TokenURL         string
	UserInfoURL      string
	Scopes           []string
	RedirectURI      string
	// Extras are provider-specific authorization parameters, e.g. Google's
	// access_type=offline and prompt=consent.
	Extras map[string]string
}

// OAuthClientConfig wires providers and the HTTP client used against them.
type OAuthClientConfig struct {
	HTTPClient *http.Client
	Providers  map[domain.Provider]OAuthProviderConfig
}

// OAuthClient implements the Authorization-Code-with-PKCE flow per RFC 7636.
// It is stateless: the (state -> verifier) binding is persisted by the
// caller, not here.
type OAuthClient struct {
	httpClient *http.Client
	providers  map[domain.Provider]OAuthProviderConfig
}

func NewOAuthClient(cfg OAuthClientConfig) *OAuthClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	providers := make(map[domain.Provider]OAuthProviderConfig, len(cfg.Providers))
	for name, provider := range cfg.Providers {
		providers[domain.Provider(strings.ToLower(strings.TrimSpace(string(name))))] = provider
	}
	return &OAuthClient{httpClient: httpClient, providers: providers}
}

func (c *OAuthClient) BeginAuthorization(provider domain.Provider, redirectURI string) (ports.Authorization, error) {
	providerCfg, err := c.providerConfig(provider)
	if err != nil {
		return ports.Authorization{}, err
	}
	if strings.TrimSpace(redirectURI) == "" {
		redirectURI = providerCfg.RedirectURI
	}
	if _, err := url.ParseRequestURI(redirectURI); err != nil {
		return ports.Authorization{}, fmt.Errorf("%w: invalid redirect_uri", domain.ErrInvalidInput)
	}

	verifier := randomURLSafe(32)
	challenge := PKCEChallenge(verifier)
	state := randomURLSafe(24)

	q := url.Values{}
	q.Set("client_id", providerCfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(providerCfg.Scopes, " "))
	q.Set("state", state)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	for k, v := range providerCfg.Extras {
		q.Set(k, v)
	}

	return ports.Authorization{
		URL:          providerCfg.AuthorizationURL + "?" + q.Encode(),
		State:        state,
		CodeVerifier: verifier,
	}, nil
}

func (c *OAuthClient) ExchangeCode(ctx context.Context, provider domain.Provider, code, codeVerifier, redirectURI string) (ports.ProviderTokens, error) {
	providerCfg, err := c.providerConfig(provider)
	if err != nil {
		return ports.ProviderTokens{}, err
	}
	if strings.TrimSpace(code) == "" {
		return ports.ProviderTokens{}, fmt.Errorf("%w: authorization code is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(redirectURI) == "" {
		redirectURI = providerCfg.RedirectURI
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", providerCfg.ClientID)
	form.Set("client_secret", providerCfg.ClientSecret)
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", codeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, providerCfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return ports.ProviderTokens{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.ProviderTokens{}, fmt.Errorf("%w: token exchange: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ports.ProviderTokens{}, fmt.Errorf("%w: token exchange failed: status=%d body=%s",
			domain.ErrExternalService, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return ports.ProviderTokens{}, fmt.Errorf("%w: decode token response: %v", domain.ErrExternalService, err)
	}
	// A 2xx with no access token is still a failed exchange.
	if strings.TrimSpace(tokenResp.AccessToken) == "" {
		return ports.ProviderTokens{}, fmt.Errorf("%w: access_token missing in token response", domain.ErrExternalService)
	}

	return ports.ProviderTokens{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

func (c *OAuthClient) FetchProfile(ctx context.Context, provider domain.Provider, accessToken string) (ports.Profile, error) {
	providerCfg, err := c.providerConfig(provider)
	if err != nil {
		return ports.Profile{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, providerCfg.UserInfoURL, nil)
	if err != nil {
		return ports.Profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.Profile{}, fmt.Errorf("%w: userinfo: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ports.Profile{}, fmt.Errorf("%w: userinfo failed: status=%d body=%s",
			domain.ErrExternalService, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	profile, err := decodeProfile(provider, resp.Body)
	if err != nil {
		return ports.Profile{}, err
	}
	// Email is the join key to local accounts; without it the identity is
	// unusable.
	if strings.TrimSpace(profile.Email) == "" {
		return ports.Profile{}, fmt.Errorf("%w: provider profile has no email", domain.ErrExternalService)
	}
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	return profile, nil
}

func (c *OAuthClient) providerConfig(provider domain.Provider) (OAuthProviderConfig, error) {
	cfg, ok := c.providers[provider]
	if !ok {
		return OAuthProviderConfig{}, fmt.Errorf("%w: unsupported provider %q", domain.ErrInvalidInput, provider)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return OAuthProviderConfig{}, fmt.Errorf("provider %s is not configured (missing client_id)", provider)
	}
	return cfg, nil
}

func decodeProfile(provider domain.Provider, body io.Reader) (ports.Profile, error) {
	switch provider {
	case domain.ProviderGoogle:
		var raw struct {
			Sub           string `json:"sub"`
			Email         string `json:"email"`
			EmailVerified bool   `json:"email_verified"`
			GivenName     string `json:"given_name"`
			FamilyName    string `json:"family_name"`
			Name          string `json:"name"`
			Picture       string `json:"picture"`
		}
		if err := json.NewDecoder(body).Decode(&raw); err != nil {
			return ports.Profile{}, fmt.Errorf("%w: decode userinfo: %v", domain.ErrExternalService, err)
		}
		return ports.Profile{
			ProviderID:    raw.Sub,
			Email:         raw.Email,
			EmailVerified: raw.EmailVerified,
			FirstName:     raw.GivenName,
			LastName:      raw.FamilyName,
			DisplayName:   raw.Name,
			AvatarURL:     raw.Picture,
		}, nil
	case domain.ProviderFacebook:
		var raw struct {
			ID        string `json:"id"`
			Email     string `json:"email"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Name      string `json:"name"`
			Picture   struct {
				Data struct {
					URL string `json:"url"`
				} `json:"data"`
			} `json:"picture"`
		}
		if err := json.NewDecoder(body).Decode(&raw); err != nil {
			return ports.Profile{}, fmt.Errorf("%w: decode userinfo: %v", domain.ErrExternalService, err)
		}
		// Facebook only returns an email the user has confirmed.
		return ports.Profile{
			ProviderID:    raw.ID,
			Email:         raw.Email,
			EmailVerified: raw.Email != "",
			FirstName:     raw.FirstName,
			LastName:      raw.LastName,
			DisplayName:   raw.Name,
			AvatarURL:     raw.Picture.Data.URL,
		}, nil
	default:
		return ports.Profile{}, fmt.Errorf("%w: unsupported provider %q", domain.ErrInvalidInput, provider)
	}
}

// PKCEChallenge derives the S256 code challenge for a verifier.
func PKCEChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomURLSafe(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return base64.RawURLEncoding.EncodeToString(raw)
}
