package mailer

import (
	"context"
	"time"

	"github.com/propflow/settlement-api/internal/config"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// SMTPMailer delivers invoice notices over SMTP. Delivery is best-effort:
// a failed send is reported as success=false, never as a fatal error to the
// settlement pipeline.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func New(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendInvoiceNotice sends a plain-text email to the given recipient.
// Returns whether the message was handed to the SMTP server. One retry is
// attempted on failure. With no SMTP host configured delivery is disabled
// and the send reports success=false without error.
func (m *SMTPMailer) SendInvoiceNotice(ctx context.Context, to, subject, body string) (bool, error) {
	logger := log.With().Str("component", "mailer").Str("to", to).Logger()

	if m.cfg.Host == "" {
		logger.Warn().Msg("smtp not configured, skipping email delivery")
		return false, nil
	}
	if to == "" {
		logger.Warn().Msg("no recipient address, skipping email delivery")
		return false, nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.cfg.User, m.cfg.SenderName))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Password)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := dialer.DialAndSend(msg); err != nil {
			lastErr = err
			logger.Warn().Err(err).Int("attempt", attempt+1).Msg("email delivery failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		logger.Info().Str("subject", subject).Msg("email delivered")
		return true, nil
	}

	return false, lastErr
}
