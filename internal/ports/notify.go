package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notifier delivers account emails. Every method is best effort: a failure
// is reported but must never abort the auth flow that triggered it.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, firstName, token string) error
	SendPasswordResetEmail(ctx context.Context, email, firstName, token string) error
	SendWelcomeEmail(ctx context.Context, email, firstName string) error
	SendSecurityAlert(ctx context.Context, email, subject, detail string) error
}

// OutboxMessage is a queued notification prior to storage.
type OutboxMessage struct {
	MessageID uuid.UUID
	Kind      string
	Recipient string
	Payload   []byte
	CreatedAt time.Time
}

// OutboxRecord is the durable notification state, including retry metadata.
type OutboxRecord struct {
	MessageID   uuid.UUID
	Kind        string
	Recipient   string
	Payload     []byte
	RetryCount  int
	LastError   *string
	CreatedAt   time.Time
	SentAt      *time.Time
	LastErrorAt *time.Time
	ClaimToken  *string
	ClaimUntil  *time.Time
	DroppedAt   *time.Time
}

// NotificationOutbox controls the send-retry workflow for queued emails.
// Claim semantics keep concurrent workers from double-sending.
type NotificationOutbox interface {
	Enqueue(ctx context.Context, msg OutboxMessage) error
	ClaimUnsent(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, messageID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, messageID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDropped(ctx context.Context, messageID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
