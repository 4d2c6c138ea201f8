// Package mail renders and delivers the transactional emails sent by the
// site: audit reports, lead alerts, the lead-magnet guide and ticket
// confirmations.
//
// This file holds the transport. Messages are built with gopkg.in/mail.v2
// and handed to a Sender; production uses SMTPSender (STARTTLS required),
// tests adapt a gomail.SendFunc with FromSender.
package mail

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"
)

// Sender delivers fully built messages.
type Sender interface {
	Send(ctx context.Context, msgs ...*gomail.Message) error
}

// SMTPConfig holds the outbound relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPSender opens one SMTP session per Send call.
type SMTPSender struct {
	dialer *gomail.Dialer
}

// NewSMTPSender returns a sender for cfg. Port 465 uses implicit TLS; any
// other port must offer STARTTLS or the session is aborted.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = gomail.MandatoryStartTLS
	d.LocalName = "sitepilot"
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	return &SMTPSender{dialer: d}
}

// Send dials the relay, sends msgs in order and closes the session.
func (s *SMTPSender) Send(ctx context.Context, msgs ...*gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.dialer.Username == "" || s.dialer.Password == "" {
		return ErrNotConfigured
	}
	if err := s.dialer.DialAndSend(msgs...); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// Verify opens and closes a session without sending anything.
func (s *SMTPSender) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.dialer.Username == "" || s.dialer.Password == "" {
		return ErrNotConfigured
	}
	sc, err := s.dialer.Dial()
	if err != nil {
		return fmt.Errorf("smtp dial %s:%d: %w", s.dialer.Host, s.dialer.Port, err)
	}
	return sc.Close()
}

// FromSender adapts any gomail.Sender (for example a gomail.SendFunc).
func FromSender(s gomail.Sender) Sender {
	return senderAdapter{s: s}
}

type senderAdapter struct{ s gomail.Sender }

func (a senderAdapter) Send(ctx context.Context, msgs ...*gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return gomail.Send(a.s, msgs...)
}
