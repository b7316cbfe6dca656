package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   Sender
}

func NewSMTPMailer(host string, port int, user, password string, from Sender) *SMTPMailer {
	if host == "" {
		return &SMTPMailer{from: from}
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (s *SMTPMailer) Configured() bool {
	return s != nil && s.dialer != nil && s.from.Email != ""
}

func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if err := m.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.from.Email, s.from.Name)
	msg.SetHeader("To", m.To...)
	msg.SetHeader("Subject", m.Subject)
	switch {
	case m.HTML != "" && m.Text != "":
		msg.SetBody("text/plain", m.Text)
		msg.AddAlternative("text/html", m.HTML)
	case m.HTML != "":
		msg.SetBody("text/html", m.HTML)
	default:
		msg.SetBody("text/plain", m.Text)
	}

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
