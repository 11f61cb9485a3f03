package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// VerifyEmail consumes a verification token. Verifying an already-verified
// account is a success, not an error.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(ports.PurposeEmailVerification, token)
	if err != nil {
		return err
	}

	account, err := s.users.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: account no longer exists", domain.ErrAuthentication)
		}
		return storeErr(err)
	}
	if account.EmailVerified() {
		return nil
	}

	if err := s.users.VerifyEmail(ctx, account.ID, s.nowFn()); err != nil {
		return storeErr(err)
	}
	return nil
}

// ResendVerification re-queues the verification email. Unknown and
// already-verified emails return success without sending, matching
// ForgotPassword's anti-enumeration posture.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
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
	if account.EmailVerified() {
		return nil
	}

	s.sendVerification(ctx, account)
	return nil
}

func (s *Service) sendVerification(ctx context.Context, account domain.Account) {
	token, err := s.tokens.Issue(ports.PurposeEmailVerification, account.ID, account.Email, account.Role)
	if err != nil {
		s.opLogger("send_verification").ErrorContext(ctx, "issue verification token failed",
			"outcome", "failure", "error", err.Error())
		return
	}
	if err := s.notifier.SendVerificationEmail(ctx, account.Email, account.FirstName, token); err != nil {
		s.opLogger("send_verification").WarnContext(ctx, "verification email delivery failed",
			"outcome", "degraded", "error", err.Error())
	}
}

func (s *Service) sendSecurityAlert(ctx context.Context, email, subject, detail string) {
	if err := s.notifier.SendSecurityAlert(context.WithoutCancel(ctx), email, subject, detail); err != nil {
		s.opLogger("send_security_alert").WarnContext(ctx, "security alert delivery failed",
			"outcome", "degraded", "error", err.Error())
	}
}
