package application

import (
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// Service is the auth orchestrator. It owns every flow-level invariant;
// stores and providers are injected and remain replaceable.
type Service struct {
	cfg      Config
	users    ports.UserStore
	sessions ports.SessionStore
	states   ports.OAuthStateStore
	oauth    ports.OAuthClient
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	notifier ports.Notifier
	logger   *slog.Logger
	nowFn    func() time.Time
}

type Dependencies struct {
	Config   Config
	Users    ports.UserStore
	Sessions ports.SessionStore
	States   ports.OAuthStateStore
	OAuth    ports.OAuthClient
	Hasher   ports.PasswordHasher
	Tokens   ports.TokenIssuer
	Notifier ports.Notifier
	Logger   *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = domain.RoleCustomer
	}
	if cfg.OAuthStateTTL <= 0 {
		cfg.OAuthStateTTL = 10 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		users:    deps.Users,
		sessions: deps.Sessions,
		states:   deps.States,
		oauth:    deps.OAuth,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		notifier: deps.Notifier,
		logger:   logger,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// storeErr converts adapter failures into the exported taxonomy. Sentinel
// errors already in the taxonomy pass through; anything else is a database
// failure that must not leak driver detail.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidInput):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrDatabase, err)
	}
}

func (s *Service) opLogger(op string) *slog.Logger {
	return s.logger.With(
		"module", "application",
		"layer", "service",
		"operation", op,
	)
}
