// Package notify delivers expiry-alert notifications. The Notifier interface
// is what the alert sweep depends on; the SMTP implementation sends real
// mail via gomail. Every error, including a timeout, is treated by callers
// as retryable on the next sweep pass.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// Notifier sends one message to one recipient. Implementations must honor
// ctx: when it is done before delivery completes, Send returns ctx.Err() and
// the attempt counts as a failure, never a silent success.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// SMTPMailer delivers mail through a single SMTP endpoint.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer returns a mailer sending through host:port authenticated as
// username/password, with the given From address.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// LogMailer is the stand-in used when no SMTP host is configured. It writes
// the would-be message to the log and reports success, so sweeps still mark
// drugs as alerted in development setups.
type LogMailer struct{}

// Send logs the message instead of delivering it.
func (LogMailer) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Int("body_bytes", len(body)).
		Msg("mail delivery disabled, message logged only")
	return nil
}

// Send dials, delivers, and closes per message. gomail has no context
// support, so the blocking send runs in a goroutine and the result races the
// context; a context expiry reports failure even if delivery later lands
// (duplicate alerts are acceptable, missed ones are not).
func (m *SMTPMailer) Send(ctx context.Context, recipient, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case <-ctx.Done():
		return fmt.Errorf("send to %s: %w", recipient, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send to %s: %w", recipient, err)
		}
		return nil
	}
}
