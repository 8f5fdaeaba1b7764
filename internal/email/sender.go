// Package email sends transactional notification mail over SMTP.
package email

import (
	"context"
	"fmt"

	"chatdesk_backend/platform/config"
	"chatdesk_backend/platform/logger"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers one HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPSender struct {
	cfg config.EmailConfig
	log *logger.Logger
}

func NewSMTPSender(cfg config.EmailConfig, log *logger.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: log}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	client, err := gomail.NewClient(s.cfg.GetSMTPHost(),
		gomail.WithPort(s.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.GetSMTPUsername()),
		gomail.WithPassword(s.cfg.GetSMTPPassword()),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	s.log.Info("email sent", "to", to, "subject", subject)
	return nil
}

// NoopSender is used when email is disabled in configuration. Sends are
// logged and dropped.
type NoopSender struct {
	log *logger.Logger
}

func NewNoopSender(log *logger.Logger) *NoopSender {
	return &NoopSender{log: log}
}

func (s *NoopSender) Send(_ context.Context, to, subject, _ string) error {
	s.log.Info("email disabled, dropping message", "to", to, "subject", subject)
	return nil
}

// NewSender picks the real or noop sender based on configuration.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() {
		return NewNoopSender(log)
	}
	return NewSMTPSender(cfg, log)
}
