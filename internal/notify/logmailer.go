package notify

import (
	"context"
	"log/slog"
)

// LogMailer writes digests to the log instead of sending them; used when
// no mail provider is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, e Email) error {
	m.logger.Info("Digest not sent, no mail provider", "to", e.To, "subject", e.Subject)
	return nil
}
