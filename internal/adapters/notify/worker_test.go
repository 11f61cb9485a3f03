package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOutboxNotifierEnqueuesTypedMessages(t *testing.T) {
	t.Parallel()

	outbox := newMemOutbox()
	notifier := NewOutboxNotifier(outbox)
	ctx := context.Background()

	if err := notifier.SendVerificationEmail(ctx, "user@example.com", "Rena", "tok-1"); err != nil {
		t.Fatalf("enqueue verification failed: %v", err)
	}
	if err := notifier.SendSecurityAlert(ctx, "user@example.com", "Account locked", "too many attempts"); err != nil {
		t.Fatalf("enqueue alert failed: %v", err)
	}

	records := outbox.all()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Kind != KindVerificationEmail {
		t.Fatalf("expected %s kind, got %s", KindVerificationEmail, records[0].Kind)
	}
	var payload map[string]string
	if err := json.Unmarshal(records[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["token"] != "tok-1" {
		t.Fatalf("expected token in payload, got %v", payload)
	}
	if records[1].Kind != KindSecurityAlert {
		t.Fatalf("expected %s kind, got %s", KindSecurityAlert, records[1].Kind)
	}
}

func TestWorkerMarksSentOnDelivery(t *testing.T) {
	t.Parallel()

	outbox := newMemOutbox()
	sender := &scriptedSender{}
	worker := NewWorker(discardLogger(), outbox, sender, time.Second, 10, time.Minute, 3)

	notifier := NewOutboxNotifier(outbox)
	ctx := context.Background()
	if err := notifier.SendWelcomeEmail(ctx, "new@example.com", "Maya"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if got := sender.deliveries(); got != 1 {
		t.Fatalf("expected 1 delivery, got %d", got)
	}
	rec := outbox.all()[0]
	if rec.SentAt == nil {
		t.Fatalf("expected sent_at to be set")
	}

	// A sent record is not claimed again.
	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if got := sender.deliveries(); got != 1 {
		t.Fatalf("expected no redelivery, got %d", got)
	}
}

func TestWorkerRetriesThenDrops(t *testing.T) {
	t.Parallel()

	outbox := newMemOutbox()
	sender := &scriptedSender{err: errors.New("relay down")}
	worker := NewWorker(discardLogger(), outbox, sender, time.Second, 10, time.Minute, 3)

	notifier := NewOutboxNotifier(outbox)
	ctx := context.Background()
	if err := notifier.SendPasswordResetEmail(ctx, "user@example.com", "Rena", "tok-2"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		outbox.releaseClaims()
		if err := worker.processOnce(ctx); err != nil {
			t.Fatalf("process %d failed: %v", i, err)
		}
		rec := outbox.all()[0]
		if rec.DroppedAt != nil {
			t.Fatalf("dropped too early on attempt %d", i)
		}
		if rec.RetryCount != i+1 {
			t.Fatalf("expected retry count %d, got %d", i+1, rec.RetryCount)
		}
	}

	// Third failure crosses maxRetries and drops the message.
	outbox.releaseClaims()
	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("final process failed: %v", err)
	}
	rec := outbox.all()[0]
	if rec.DroppedAt == nil {
		t.Fatalf("expected message dropped after exhausting retries")
	}

	// Dropped messages are never claimed again.
	before := sender.deliveries()
	outbox.releaseClaims()
	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("post-drop process failed: %v", err)
	}
	if sender.deliveries() != before {
		t.Fatalf("expected no attempts on dropped message")
	}
}

func TestWorkerRespectsForeignClaims(t *testing.T) {
	t.Parallel()

	outbox := newMemOutbox()
	sender := &scriptedSender{}
	worker := NewWorker(discardLogger(), outbox, sender, time.Second, 10, time.Minute, 3)

	notifier := NewOutboxNotifier(outbox)
	ctx := context.Background()
	if err := notifier.SendWelcomeEmail(ctx, "claimed@example.com", "Taki"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	// Another worker holds the claim; this one must not double-send.
	if _, err := outbox.ClaimUnsent(ctx, 10, "other-worker", time.Now().UTC().Add(time.Minute)); err != nil {
		t.Fatalf("foreign claim failed: %v", err)
	}
	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if sender.deliveries() != 0 {
		t.Fatalf("expected no delivery while a foreign claim is live")
	}
}

type scriptedSender struct {
	mu    sync.Mutex
	err   error
	count int
}

func (s *scriptedSender) Send(context.Context, string, string, []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return s.err
}

func (s *scriptedSender) deliveries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// memOutbox mirrors the claim semantics of the SQL outbox.
type memOutbox struct {
	mu      sync.Mutex
	order   []uuid.UUID
	records map[uuid.UUID]*ports.OutboxRecord
}

func newMemOutbox() *memOutbox {
	return &memOutbox{records: map[uuid.UUID]*ports.OutboxRecord{}}
}

func (o *memOutbox) all() []ports.OutboxRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ports.OutboxRecord, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, *o.records[id])
	}
	return out
}

func (o *memOutbox) releaseClaims() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.records {
		rec.ClaimToken = nil
		rec.ClaimUntil = nil
	}
}

func (o *memOutbox) Enqueue(_ context.Context, msg ports.OutboxMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = append(o.order, msg.MessageID)
	o.records[msg.MessageID] = &ports.OutboxRecord{
		MessageID: msg.MessageID,
		Kind:      msg.Kind,
		Recipient: msg.Recipient,
		Payload:   msg.Payload,
		CreatedAt: msg.CreatedAt,
	}
	return nil
}

func (o *memOutbox) ClaimUnsent(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	var out []ports.OutboxRecord
	for _, id := range o.order {
		if len(out) >= limit {
			break
		}
		rec := o.records[id]
		if rec.SentAt != nil || rec.DroppedAt != nil {
			continue
		}
		if rec.ClaimUntil != nil && rec.ClaimUntil.After(now) {
			continue
		}
		token := claimToken
		until := claimUntil
		rec.ClaimToken = &token
		rec.ClaimUntil = &until
		out = append(out, *rec)
	}
	return out, nil
}

func (o *memOutbox) MarkSent(_ context.Context, messageID uuid.UUID, claimToken string, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.records[messageID]
	if !ok || rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
		return nil
	}
	rec.SentAt = &at
	rec.ClaimToken = nil
	rec.ClaimUntil = nil
	return nil
}

func (o *memOutbox) MarkFailed(_ context.Context, messageID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.records[messageID]
	if !ok || rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
		return nil
	}
	rec.RetryCount++
	rec.LastError = &errMsg
	rec.LastErrorAt = &at
	rec.ClaimToken = nil
	rec.ClaimUntil = nil
	return nil
}

func (o *memOutbox) MarkDropped(_ context.Context, messageID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.records[messageID]
	if !ok || rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
		return nil
	}
	rec.DroppedAt = &at
	rec.LastError = &errMsg
	rec.LastErrorAt = &at
	rec.ClaimToken = nil
	rec.ClaimUntil = nil
	return nil
}
