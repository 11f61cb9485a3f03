package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// Worker pulls unsent outbox records and hands them to the sender.
// Separating the transactional write from delivery keeps auth flows fast and
// makes retries durable across restarts.
type Worker struct {
	logger     *slog.Logger
	outbox     ports.NotificationOutbox
	sender     Sender
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
}

func NewWorker(
	logger *slog.Logger,
	outbox ports.NotificationOutbox,
	sender Sender,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxRetries int,
) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Worker{
		logger:     logger,
		outbox:     outbox,
		sender:     sender,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
		maxRetries: maxRetries,
	}
}

// Run executes the periodic delivery loop until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "notification iteration failed",
				"module", "notify.worker",
				"layer", "adapter",
				"operation", "notify_process_once",
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

func (w *Worker) processOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnsent(ctx, w.batchSize, claimToken, time.Now().UTC().Add(w.claimTTL))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	sent := 0
	failed := 0
	dropped := 0
	for _, rec := range records {
		if rec.RetryCount >= w.maxRetries {
			dropped++
			_ = w.outbox.MarkDropped(ctx, rec.MessageID, claimToken, "retry threshold reached before delivery", now)
			continue
		}

		if err := w.sender.Send(ctx, rec.Kind, rec.Recipient, rec.Payload); err != nil {
			failed++
			retriesAfterFailure := rec.RetryCount + 1
			if retriesAfterFailure >= w.maxRetries {
				dropped++
				w.logger.ErrorContext(ctx, "notification dropped after repeated failures",
					"module", "notify.worker",
					"layer", "adapter",
					"operation", "send_notification",
					"outcome", "failure",
					"message_id", rec.MessageID,
					"kind", rec.Kind,
					"retry_count", retriesAfterFailure,
					"error", err,
				)
				_ = w.outbox.MarkDropped(ctx, rec.MessageID, claimToken, err.Error(), now)
				continue
			}

			w.logger.WarnContext(ctx, "notification delivery failed; retry scheduled",
				"module", "notify.worker",
				"layer", "adapter",
				"operation", "send_notification",
				"outcome", "failure",
				"message_id", rec.MessageID,
				"kind", rec.Kind,
				"retry_count", retriesAfterFailure,
				"error", err,
			)
			_ = w.outbox.MarkFailed(ctx, rec.MessageID, claimToken, err.Error(), now)
			continue
		}
		sent++
		_ = w.outbox.MarkSent(ctx, rec.MessageID, claimToken, now)
	}
	if len(records) > 0 {
		w.logger.InfoContext(ctx, "notification batch processed",
			"module", "notify.worker",
			"layer", "adapter",
			"operation", "notify_process_once",
			"outcome", "success",
			"batch_size", len(records),
			"sent_count", sent,
			"failed_count", failed,
			"dropped_count", dropped,
		)
	}
	return nil
}
