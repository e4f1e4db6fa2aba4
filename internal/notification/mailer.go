package notification

import (
	"gopkg.in/gomail.v2"

	"lab-reservation-backend/config"
)

// Mailer sends a plain-text email.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailer returns an SMTP mailer, or a NoopMailer when no host is configured.
func NewMailer(cfg config.MailConfig) Mailer {
	if cfg.Host == "" {
		return NoopMailer{}
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send dials the relay and sends one message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

// NoopMailer drops every message.
type NoopMailer struct{}

// Send discards the message and always succeeds.
func (NoopMailer) Send(string, string, string) error { return nil }
