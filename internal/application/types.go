package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

// Config holds the policy knobs the orchestrator applies per request.
type Config struct {
	DefaultRole   domain.Role
	OAuthStateTTL time.Duration
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type RegisterResponse struct {
	AccountID uuid.UUID     `json:"account_id"`
	Status    domain.Status `json:"status"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name,omitempty"`
	DeviceOS   string `json:"device_os,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// TokenPair is an access/refresh token issue result. ExpiresAt is the access
// token expiry.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AccountInfo is the caller-facing account view; it never carries the
// password hash or lockout internals.
type AccountInfo struct {
	ID            uuid.UUID       `json:"id"`
	Email         string          `json:"email"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Role          domain.Role     `json:"role"`
	Status        domain.Status   `json:"status"`
	Provider      domain.Provider `json:"provider,omitempty"`
	EmailVerified bool            `json:"email_verified"`
}

type LoginResponse struct {
	Account AccountInfo `json:"account"`
	Tokens  TokenPair   `json:"tokens"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type OAuthBeginResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

type OAuthCallbackRequest struct {
	Provider   domain.Provider
	Code       string
	State      string
	DeviceName string
	DeviceOS   string
	IPAddress  string
	UserAgent  string
}

type OAuthCallbackResponse struct {
	Account   AccountInfo `json:"account"`
	Tokens    TokenPair   `json:"tokens"`
	IsNewUser bool        `json:"is_new_user"`
}

type SessionItem struct {
	SessionID  uuid.UUID `json:"session_id"`
	DeviceName string    `json:"device_name"`
	DeviceOS   string    `json:"device_os"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Revoked    bool      `json:"revoked"`
}

func toAccountInfo(a domain.Account) AccountInfo {
	return AccountInfo{
		ID:            a.ID,
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Role:          a.Role,
		Status:        a.Status,
		Provider:      a.Provider,
		EmailVerified: a.EmailVerified(),
	}
}

func toSessionItem(s domain.Session) SessionItem {
	return SessionItem{
		SessionID:  s.ID,
		DeviceName: s.DeviceName,
		DeviceOS:   s.DeviceOS,
		IPAddress:  s.IPAddress,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
		Revoked:    s.Revoked,
	}
}
