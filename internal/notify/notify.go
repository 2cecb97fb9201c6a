// Package notify delivers overstay alert emails.
package notify

import (
	"context"
	"os"

	"github.com/kozaktomas/gatex/internal/config"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "notify").Logger().Output(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: "15:04:05",
})

// Sender defines the interface for sending emails, allowing for mock implementations in tests.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// New returns a Resend sender behind a circuit breaker, or a LogSender when
// no API key is configured.
func New(cfg *config.EmailConfig) Sender {
	if cfg.ResendAPIKey == "" {
		logger.Warn().Msg("RESEND_API_KEY not set, overstay alerts will only be logged")
		return LogSender{}
	}
	return NewBreakerSender("resend", NewResendSender(cfg.ResendAPIKey, cfg.FromEmail, cfg.FromName))
}

// LogSender logs alerts instead of sending them.
type LogSender struct{}

func (LogSender) SendEmail(ctx context.Context, to, subject, body string) error {
	logger.Info().Str("to", to).Str("subject", subject).Str("body", body).Msg("alert email (dry run)")
	return nil
}
