package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the back-office role granted to an account.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleStaff    Role = "staff"
	RoleSeller   Role = "seller"
	RoleCustomer Role = "customer"
	RoleViewer   Role = "viewer"
)

// ValidRole reports whether the given role is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff, RoleSeller, RoleCustomer, RoleViewer:
		return true
	}
	return false
}

// Status is the account lifecycle state.
type Status string

const (
	StatusActive              Status = "active"
	StatusInactive            Status = "inactive"
	StatusPendingVerification Status = "pending_verification"
	StatusSuspended           Status = "suspended"
)

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderLocal    Provider = "local"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// Account is the canonical identity aggregate.
// Exactly one of password hash or federation binding is authoritative for
// login; a linked account may hold both.
type Account struct {
	ID                uuid.UUID
	Email             string
	PasswordHash      string
	FirstName         string
	LastName          string
	Role              Role
	Status            Status
	Provider          Provider
	ProviderID        string
	EmailVerifiedAt   *time.Time
	LastLoginAt       *time.Time
	FailedAttempts    int
	LockUntil         *time.Time
	LastFailedLoginAt *time.Time
	DeletedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasPassword reports whether password login is possible for this account.
func (a Account) HasPassword() bool { return a.PasswordHash != "" }

// EmailVerified reports whether the account email has been confirmed.
func (a Account) EmailVerified() bool { return a.EmailVerifiedAt != nil }

// CanLogin reports whether the account status allows authentication.
func (a Account) CanLogin() bool { return a.Status == StatusActive && a.DeletedAt == nil }

// Session models a refresh-token grant. A session is valid iff it is not
// revoked and has not expired; the refresh token value is single use and is
// replaced on every rotation.
type Session struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	RefreshToken string
	TokenClass   string
	DeviceName   string
	DeviceOS     string
	IPAddress    string
	UserAgent    string
	ExpiresAt    time.Time
	Revoked      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Valid reports whether the session can still be used at the given instant.
func (s Session) Valid(now time.Time) bool {
	return !s.Revoked && s.ExpiresAt.After(now)
}
