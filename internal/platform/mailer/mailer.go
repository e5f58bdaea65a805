// Package mailer delivers account emails. The only transport is the
// structured log, which is enough for local use and for operators to copy
// verification and reset links.
package mailer

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/redact"
)

var ErrInvalidRecipient = errors.New("invalid recipient address")

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes each message to the logger instead of sending it.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(l *slog.Logger) *LogMailer {
	if l == nil {
		l = slog.Default()
	}
	return &LogMailer{logger: l.With("component", "mailer")}
}

// Send implements Mailer.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return ErrInvalidRecipient
	}
	log := logger.FromContextOrDefault(ctx, m.logger)
	log.InfoContext(ctx, "email queued",
		"to", redact.Email(msg.To),
		"subject", msg.Subject)
	// The body carries one-time tokens, so it only appears at debug level.
	log.DebugContext(ctx, "email body", "to", redact.Email(msg.To), "body", strings.TrimSpace(msg.Body))
	return nil
}
