package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotConfigured = errors.New("email provider not configured")

// Message is a rendered outbound email. At least one of HTML or Text must be set.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return errors.New("message has no recipients")
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return errors.New("message has an empty recipient")
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("message has no subject")
	}
	if m.HTML == "" && m.Text == "" {
		return errors.New("message has no body")
	}
	return nil
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// Sender is the "From" identity used by every mailer.
type Sender struct {
	Email string
	Name  string
}

func (s Sender) String() string {
	if s.Name == "" {
		return s.Email
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}
