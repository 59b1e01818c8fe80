package mail

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPConfig holds connection settings for the outbound mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through a plain SMTP relay (Mailpit in development).
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer builds an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers a plain-text message. The context is accepted for interface
// symmetry; net/smtp has no native cancellation.
func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		m.cfg.From, to, subject, body,
	))

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}

// SendOTP delivers the password-reset code message.
func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string) error {
	subject := "Código de recuperação de senha"
	body := fmt.Sprintf(
		"Olá,\n\nSeu código de recuperação de senha é: %s\n\nO código expira em 15 minutos. Se você não solicitou a recuperação, ignore este e-mail.\n",
		code,
	)
	return m.Send(ctx, to, subject, body)
}
