package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/sweetcrumb/backoffice-auth/internal/application"
)

// SessionCleanupWorker periodically deletes sessions past their expiry.
type SessionCleanupWorker struct {
	logger   *slog.Logger
	service  *application.Service
	interval time.Duration
}

func NewSessionCleanupWorker(logger *slog.Logger, service *application.Service, interval time.Duration) *SessionCleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionCleanupWorker{logger: logger, service: service, interval: interval}
}

func (w *SessionCleanupWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.service.PurgeExpiredSessions(ctx); err != nil {
			w.logger.ErrorContext(ctx, "session cleanup iteration failed",
				"module", "notify.session_cleanup_worker",
				"layer", "adapter",
				"operation", "purge_expired_sessions",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
