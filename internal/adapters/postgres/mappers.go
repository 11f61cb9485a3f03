package postgres

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

func toDomainAccount(row accountModel) domain.Account {
	return domain.Account{
		ID:                row.AccountID,
		Email:             row.Email,
		PasswordHash:      derefString(row.PasswordHash),
		FirstName:         row.FirstName,
		LastName:          row.LastName,
		Role:              domain.Role(row.Role),
		Status:            domain.Status(row.Status),
		Provider:          domain.Provider(row.Provider),
		ProviderID:        derefString(row.ProviderID),
		EmailVerifiedAt:   row.EmailVerifiedAt,
		LastLoginAt:       row.LastLoginAt,
		FailedAttempts:    row.FailedAttempts,
		LockUntil:         row.LockUntil,
		LastFailedLoginAt: row.LastFailedLoginAt,
		DeletedAt:         row.DeletedAt,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func toDomainSession(row sessionModel) domain.Session {
	return domain.Session{
		ID:           row.SessionID,
		AccountID:    row.AccountID,
		RefreshToken: row.RefreshToken,
		TokenClass:   row.TokenClass,
		DeviceName:   row.DeviceName,
		DeviceOS:     row.DeviceOS,
		IPAddress:    derefString(row.IPAddress),
		UserAgent:    row.UserAgent,
		ExpiresAt:    row.ExpiresAt,
		Revoked:      row.RevokedAt != nil,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
