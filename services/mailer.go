package services

import (
	"log"

	"github.com/juju/errors"
	"gopkg.in/gomail.v2"

	"home-services-server/config"
)

// Mailer delivers a single HTML email
type Mailer interface {
	Send(to, subject, body string) error
}

// NewMailer returns an SMTP mailer, or a log-only mailer when no SMTP host
// is configured.
func NewMailer(cfg config.MailConfig) Mailer {
	if cfg.Host == "" {
		log.Println("⚠️ SMTP_HOST not set, emails will only be logged")
		return LogMailer{}
	}
	return &SMTPMailer{
		from:   cfg.User,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return errors.Annotatef(err, "sending %q to %s", subject, to)
	}
	return nil
}

// LogMailer writes the envelope to the log instead of sending
type LogMailer struct{}

func (LogMailer) Send(to, subject, _ string) error {
	log.Printf("📧 Email to %s: %s", to, subject)
	return nil
}
