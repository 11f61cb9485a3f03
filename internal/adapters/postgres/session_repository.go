package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

type sessionRepository struct {
	db *gorm.DB
}

func (r *sessionRepository) Create(ctx context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	rec := sessionModel{
		AccountID:    params.AccountID,
		RefreshToken: params.RefreshToken,
		TokenClass:   params.TokenClass,
		DeviceName:   params.DeviceName,
		DeviceOS:     params.DeviceOS,
		IPAddress:    nullableString(params.IPAddress),
		UserAgent:    params.UserAgent,
		ExpiresAt:    params.ExpiresAt,
		CreatedAt:    params.CreatedAt,
		UpdatedAt:    params.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Session{}, domain.ErrConflict
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) FindByID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error) {
	var rec sessionModel
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (domain.Session, error) {
	var rec sessionModel
	if err := r.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

// Rotate swaps the session's refresh token in a compare-and-update keyed on
// the current token value. When two rotations race, exactly one matches the
// WHERE clause; the loser gets ErrNotFound.
func (r *sessionRepository) Rotate(ctx context.Context, sessionID uuid.UUID, oldToken, newToken string, newExpiry, at time.Time) (domain.Session, error) {
	var rec sessionModel
	res := r.db.WithContext(ctx).
		Model(&rec).
		Clauses(clause.Returning{}).
		Where("session_id = ?", sessionID).
		Where("refresh_token = ?", oldToken).
		Where("revoked_at IS NULL").
		Updates(map[string]any{
			"refresh_token": newToken,
			"expires_at":    newExpiry,
			"updated_at":    at,
		})
	if res.Error != nil {
		return domain.Session{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Session{}, domain.ErrNotFound
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) Revoke(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("session_id = ?", sessionID).
		Where("revoked_at IS NULL").
		Updates(map[string]any{
			"revoked_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&sessionModel{}).Where("session_id = ?", sessionID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *sessionRepository) RevokeByRefreshToken(ctx context.Context, refreshToken string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("refresh_token = ?", refreshToken).
		Where("revoked_at IS NULL").
		Updates(map[string]any{
			"revoked_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sessionRepository) RevokeAllForAccount(ctx context.Context, accountID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("account_id = ?", accountID).
		Where("revoked_at IS NULL").
		Updates(map[string]any{
			"revoked_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *sessionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Session, error) {
	var rows []sessionModel
	query := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Session, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainSession(item))
	}
	return result, nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&sessionModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
