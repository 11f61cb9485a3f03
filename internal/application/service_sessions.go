package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

const (
	defaultSessionPageSize = 50
	maxSessionPageSize     = 200
)

// GetAccount returns the caller-facing view of an account.
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (AccountInfo, error) {
	account, err := s.users.FindByID(ctx, accountID)
	if err != nil {
		return AccountInfo{}, storeErr(err)
	}
	return toAccountInfo(account), nil
}

// ListSessions returns the account's sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]SessionItem, error) {
	if limit <= 0 {
		limit = defaultSessionPageSize
	}
	if limit > maxSessionPageSize {
		limit = maxSessionPageSize
	}
	if offset < 0 {
		offset = 0
	}

	sessions, err := s.sessions.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, storeErr(err)
	}
	items := make([]SessionItem, 0, len(sessions))
	for _, sess := range sessions {
		items = append(items, toSessionItem(sess))
	}
	return items, nil
}

// RevokeSession revokes a single session. Callers may only revoke their own
// sessions; a foreign session id reads as not found so session ids of other
// accounts are not confirmable.
func (s *Service) RevokeSession(ctx context.Context, accountID, sessionID uuid.UUID) error {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return storeErr(err)
	}
	if sess.AccountID != accountID {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	if sess.Revoked {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sessionID, s.nowFn()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return storeErr(err)
	}
	s.opLogger("revoke_session").InfoContext(ctx, "session revoked",
		"outcome", "success", "account_id", accountID.String(), "session_id", sessionID.String())
	return nil
}

// PurgeExpiredSessions deletes session rows whose expiry has passed. Run
// periodically from the worker.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	purged, err := s.sessions.DeleteExpired(ctx, s.nowFn())
	if err != nil {
		return 0, storeErr(err)
	}
	if purged > 0 {
		s.opLogger("purge_expired_sessions").InfoContext(ctx, "expired sessions purged",
			"outcome", "success", "purged_count", purged)
	}
	return purged, nil
}

// DeactivateAccount soft-deletes the account and revokes every live session.
// The record is retained for audit; the email stays claimed.
func (s *Service) DeactivateAccount(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.users.FindByID(ctx, accountID)
	if err != nil {
		return storeErr(err)
	}

	now := s.nowFn()
	if err := s.users.SoftDelete(ctx, accountID, now); err != nil {
		return storeErr(err)
	}
	revoked, err := s.sessions.RevokeAllForAccount(ctx, accountID, now)
	if err != nil {
		return storeErr(err)
	}

	s.opLogger("deactivate_account").InfoContext(ctx, "account deactivated",
		"outcome", "success", "account_id", accountID.String(),
		"email", account.Email, "sessions_revoked", revoked)
	return nil
}
