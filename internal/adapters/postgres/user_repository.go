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

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, params ports.CreateAccountParams) (domain.Account, error) {
	rec := accountModel{
		Email:           params.Email,
		PasswordHash:    nullableString(params.PasswordHash),
		FirstName:       params.FirstName,
		LastName:        params.LastName,
		Role:            string(params.Role),
		Status:          string(params.Status),
		Provider:        string(params.Provider),
		ProviderID:      nullableString(params.ProviderID),
		EmailVerifiedAt: params.EmailVerifiedAt,
		CreatedAt:       params.CreatedAt,
		UpdatedAt:       params.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, domain.ErrConflict
		}
		return domain.Account{}, err
	}
	return toDomainAccount(rec), nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, err
	}
	return toDomainAccount(rec), nil
}

func (r *userRepository) FindByID(ctx context.Context, accountID uuid.UUID) (domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, err
	}
	return toDomainAccount(rec), nil
}

func (r *userRepository) FindByProvider(ctx context.Context, provider domain.Provider, providerID string) (domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).
		Where("provider = ?", string(provider)).
		Where("provider_id = ?", providerID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, err
	}
	return toDomainAccount(rec), nil
}

func (r *userRepository) Update(ctx context.Context, accountID uuid.UUID, patch ports.AccountPatch, updatedAt time.Time) (domain.Account, error) {
	updates := map[string]any{"updated_at": updatedAt}
	if patch.PasswordHash != nil {
		updates["password_hash"] = nullableString(*patch.PasswordHash)
	}
	if patch.FirstName != nil {
		updates["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		updates["last_name"] = *patch.LastName
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.Provider != nil {
		updates["provider"] = string(*patch.Provider)
	}
	if patch.ProviderID != nil {
		updates["provider_id"] = nullableString(*patch.ProviderID)
	}

	var rec accountModel
	res := r.db.WithContext(ctx).
		Model(&rec).
		Clauses(clause.Returning{}).
		Where("account_id = ?", accountID).
		Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.Account{}, domain.ErrConflict
		}
		return domain.Account{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Account{}, domain.ErrNotFound
	}
	return toDomainAccount(rec), nil
}

// IncrementLoginAttempts bumps the failure counter in a single UPDATE and
// returns the new value, so concurrent failures each observe a distinct
// count.
func (r *userRepository) IncrementLoginAttempts(ctx context.Context, accountID uuid.UUID, failedAt time.Time) (int, error) {
	var rec accountModel
	res := r.db.WithContext(ctx).
		Model(&rec).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "failed_attempts"}}}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"failed_attempts":      gorm.Expr("failed_attempts + 1"),
			"last_failed_login_at": failedAt,
			"updated_at":           failedAt,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrNotFound
	}
	return rec.FailedAttempts, nil
}

func (r *userRepository) ResetLoginAttempts(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"failed_attempts":      0,
			"lock_until":           nil,
			"last_failed_login_at": nil,
			"updated_at":           at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) LockAccount(ctx context.Context, accountID uuid.UUID, lockUntil time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"lock_until": lockUntil,
			"updated_at": lockUntil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"last_login_at": at,
			"updated_at":    at,
		}).Error
}

// VerifyEmail stamps the verification time and promotes a pending account to
// active in the same statement.
func (r *userRepository) VerifyEmail(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"email_verified_at": at,
			"status":            gorm.Expr("CASE WHEN status = 'pending_verification' THEN 'active' ELSE status END"),
			"updated_at":        at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) SoftDelete(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("account_id = ?", accountID).
		Where("deleted_at IS NULL").
		Updates(map[string]any{
			"status":     string(domain.StatusInactive),
			"deleted_at": at,
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
