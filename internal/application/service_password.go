package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// ChangePassword verifies the current credential before replacing it, then
// revokes every session so a stolen refresh token does not outlive the
// credential change.
func (s *Service) ChangePassword(ctx context.Context, accountID uuid.UUID, req ChangePasswordRequest) error {
	account, err := s.users.FindByID(ctx, accountID)
	if err != nil {
		return storeErr(err)
	}
	if !account.HasPassword() {
		return fmt.Errorf("%w: this account signs in with %s", domain.ErrAuthorization, account.Provider)
	}
	if err := s.hasher.Compare(account.PasswordHash, req.CurrentPassword); err != nil {
		return fmt.Errorf("%w: current password is incorrect", domain.ErrAuthentication)
	}

	report := domain.CheckPasswordStrength(req.NewPassword)
	if !report.OK {
		return fmt.Errorf("%w: password %s", domain.ErrInvalidInput, strings.Join(report.Violations, "; "))
	}

	newHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if _, err := s.users.Update(ctx, account.ID, ports.AccountPatch{PasswordHash: &newHash}, s.nowFn()); err != nil {
		return storeErr(err)
	}

	if _, err := s.sessions.RevokeAllForAccount(ctx, account.ID, s.nowFn()); err != nil {
		return storeErr(err)
	}

	s.sendSecurityAlert(ctx, account.Email, "Password changed",
		"Your password was changed. All active sessions have been signed out.")
	return nil
}

// ForgotPassword queues a reset email. Unknown emails and accounts without a
// password return success with nothing sent, so the endpoint cannot be used
// to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	account, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return storeErr(err)
	}
	if !account.HasPassword() {
		return nil
	}

	token, err := s.tokens.Issue(ports.PurposePasswordReset, account.ID, account.Email, account.Role)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if err := s.notifier.SendPasswordResetEmail(ctx, account.Email, account.FirstName, token); err != nil {
		s.opLogger("forgot_password").WarnContext(ctx, "reset email delivery failed",
			"outcome", "degraded", "error", err.Error())
	}
	return nil
}

// ResetPassword consumes a reset token, replaces the credential, clears the
// lockout state, and revokes every session. A completed out-of-band reset is
// treated as proof of identity that also clears prior lock state.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	claims, err := s.tokens.Verify(ports.PurposePasswordReset, req.Token)
	if err != nil {
		return err
	}

	report := domain.CheckPasswordStrength(req.NewPassword)
	if !report.OK {
		return fmt.Errorf("%w: password %s", domain.ErrInvalidInput, strings.Join(report.Violations, "; "))
	}

	account, err := s.users.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: account no longer exists", domain.ErrAuthentication)
		}
		return storeErr(err)
	}

	newHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	now := s.nowFn()
	if _, err := s.users.Update(ctx, account.ID, ports.AccountPatch{PasswordHash: &newHash}, now); err != nil {
		return storeErr(err)
	}
	if err := s.users.ResetLoginAttempts(ctx, account.ID, now); err != nil {
		return storeErr(err)
	}
	if _, err := s.sessions.RevokeAllForAccount(ctx, account.ID, now); err != nil {
		return storeErr(err)
	}

	s.sendSecurityAlert(ctx, account.Email, "Password reset",
		"Your password was reset. All active sessions have been signed out.")
	return nil
}
