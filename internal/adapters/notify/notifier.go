package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// Notification kinds stored in the outbox. The worker routes on these when
// handing messages to the sender.
const (
	KindVerificationEmail  = "email.verification"
	KindPasswordResetEmail = "email.password_reset"
	KindWelcomeEmail       = "email.welcome"
	KindSecurityAlert      = "email.security_alert"
)

// OutboxNotifier implements ports.Notifier by persisting each notification
// to the transactional outbox. Delivery happens asynchronously in the
// worker, so a slow or down mail relay never blocks an auth flow.
type OutboxNotifier struct {
	outbox ports.NotificationOutbox
	nowFn  func() time.Time
}

func NewOutboxNotifier(outbox ports.NotificationOutbox) *OutboxNotifier {
	return &OutboxNotifier{outbox: outbox, nowFn: func() time.Time { return time.Now().UTC() }}
}

func (n *OutboxNotifier) SendVerificationEmail(ctx context.Context, email, firstName, token string) error {
	return n.enqueue(ctx, KindVerificationEmail, email, map[string]string{
		"first_name": firstName,
		"token":      token,
	})
}

func (n *OutboxNotifier) SendPasswordResetEmail(ctx context.Context, email, firstName, token string) error {
	return n.enqueue(ctx, KindPasswordResetEmail, email, map[string]string{
		"first_name": firstName,
		"token":      token,
	})
}

func (n *OutboxNotifier) SendWelcomeEmail(ctx context.Context, email, firstName string) error {
	return n.enqueue(ctx, KindWelcomeEmail, email, map[string]string{
		"first_name": firstName,
	})
}

func (n *OutboxNotifier) SendSecurityAlert(ctx context.Context, email, subject, detail string) error {
	return n.enqueue(ctx, KindSecurityAlert, email, map[string]string{
		"subject": subject,
		"detail":  detail,
	})
}

func (n *OutboxNotifier) enqueue(ctx context.Context, kind, recipient string, payload map[string]string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return n.outbox.Enqueue(ctx, ports.OutboxMessage{
		MessageID: uuid.New(),
		Kind:      kind,
		Recipient: recipient,
		Payload:   raw,
		CreatedAt: n.nowFn(),
	})
}
