package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, msg ports.OutboxMessage) error {
	payload := msg.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	rec := notificationOutboxModel{
		MessageID: msg.MessageID,
		Kind:      msg.Kind,
		Recipient: msg.Recipient,
		Payload:   string(payload),
		CreatedAt: msg.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// ClaimUnsent stamps up to limit unsent messages with the worker's claim
// token under SKIP LOCKED, so concurrently polling workers never pick up the
// same message.
func (r *outboxRepository) ClaimUnsent(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, fmt.Errorf("claim token is required")
	}

	now := time.Now().UTC()
	var rows []notificationOutboxModel
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subquery := tx.Model(&notificationOutboxModel{}).
			Select("message_id").
			Where("sent_at IS NULL").
			Where("dropped_at IS NULL").
			Where("claim_until IS NULL OR claim_until < ?", now).
			Order("created_at ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})

		if err := tx.Model(&notificationOutboxModel{}).
			Where("message_id IN (?)", subquery).
			Updates(map[string]any{
				"claim_token": claimToken,
				"claim_until": claimUntil,
			}).Error; err != nil {
			return err
		}

		return tx.Where("claim_token = ?", claimToken).
			Where("sent_at IS NULL").
			Where("dropped_at IS NULL").
			Order("created_at ASC").
			Find(&rows).Error
	}); err != nil {
		return nil, err
	}

	result := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, ports.OutboxRecord{
			MessageID:   row.MessageID,
			Kind:        row.Kind,
			Recipient:   row.Recipient,
			Payload:     []byte(row.Payload),
			RetryCount:  row.RetryCount,
			LastError:   row.LastError,
			CreatedAt:   row.CreatedAt,
			SentAt:      row.SentAt,
			LastErrorAt: row.LastErrorAt,
			ClaimToken:  row.ClaimToken,
			ClaimUntil:  row.ClaimUntil,
			DroppedAt:   row.DroppedAt,
		})
	}
	return result, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, messageID uuid.UUID, claimToken string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&notificationOutboxModel{}).
		Where("message_id = ?", messageID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"sent_at":     at,
			"claim_token": nil,
			"claim_until": nil,
		}).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, messageID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&notificationOutboxModel{}).
		Where("message_id = ?", messageID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    errMsg,
			"last_error_at": at,
			"claim_token":   nil,
			"claim_until":   nil,
		}).Error
}

func (r *outboxRepository) MarkDropped(ctx context.Context, messageID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&notificationOutboxModel{}).
		Where("message_id = ?", messageID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    errMsg,
			"last_error_at": at,
			"dropped_at":    at,
			"claim_token":   nil,
			"claim_until":   nil,
		}).Error
}
