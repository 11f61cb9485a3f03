package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Sender delivers a single outbox record to the recipient.
type Sender interface {
	Send(ctx context.Context, kind, recipient string, payload []byte) error
}

// LoggingSender writes each notification to the log instead of a mail relay.
// It is the default in environments without SMTP credentials.
type LoggingSender struct {
	logger *slog.Logger
}

func NewLoggingSender(logger *slog.Logger) *LoggingSender {
	return &LoggingSender{logger: logger}
}

func (s *LoggingSender) Send(ctx context.Context, kind, recipient string, payload []byte) error {
	s.logger.InfoContext(ctx, "notification delivered",
		"module", "notify.sender",
		"layer", "adapter",
		"operation", "send",
		"outcome", "success",
		"kind", kind,
		"recipient", recipient,
		"payload", redactPayload(payload),
	)
	return nil
}

// redactPayload strips credential material before the payload reaches the
// log. A short token prefix survives, enough to correlate with a user report.
func redactPayload(payload []byte) string {
	var fields map[string]string
	if err := json.Unmarshal(payload, &fields); err != nil {
		return fmt.Sprintf("<%d bytes>", len(payload))
	}
	if token, ok := fields["token"]; ok {
		if len(token) > 8 {
			token = token[:8]
		}
		fields["token"] = token + "..."
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return fmt.Sprintf("<%d bytes>", len(payload))
	}
	return string(out)
}
