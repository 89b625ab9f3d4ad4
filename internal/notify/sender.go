package notify

import (
	"context"
	"log/slog"

	"briefing/internal/logging"
)

// Payload is one outbound email.
type Payload struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, payload Payload) error
}

// LogSender records deliveries in the log instead of sending them. It is
// the default when no SMTP URL is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender builds the log-only sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logging.NewComponentLogger(logger, "notify.log-sender")}
}

// Send logs the payload and reports success.
func (s *LogSender) Send(ctx context.Context, payload Payload) error {
	s.logger.Info("email delivery (log only)",
		logging.String("to", payload.To),
		logging.String("subject", payload.Subject))
	return nil
}
