package contact

import (
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidInput is returned when a submission is missing fields or has a
// malformed address.
var ErrInvalidInput = errors.New("contact: invalid input")

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("contact: SMTP credentials not configured")

const maxMessageLen = 5000

// Message is one contact form submission.
type Message struct {
	Name    string
	Email   string
	Message string
}

// Validate trims the fields and checks them.
func (m *Message) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Message = strings.TrimSpace(m.Message)

	if m.Name == "" || m.Email == "" || m.Message == "" {
		return errors.Wrap(ErrInvalidInput, "name, email and message are required")
	}
	if strings.ContainsAny(m.Name+m.Email, "\r\n") {
		return errors.Wrap(ErrInvalidInput, "header fields must be single line")
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return errors.Wrap(ErrInvalidInput, "email address is malformed")
	}
	if len(m.Message) > maxMessageLen {
		return errors.Wrap(ErrInvalidInput, "message is too long")
	}
	return nil
}

// Mailer delivers contact messages.
type Mailer interface {
	Send(m Message) error
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends messages through an SMTP relay.
type SMTPMailer struct {
	Host string
	Port string
	User string
	Pass string
	To   string

	send SendFunc
}

// NewSMTPMailer creates a mailer. If to is empty the message goes to user.
func NewSMTPMailer(host, port, user, pass, to string) *SMTPMailer {
	if to == "" {
		to = user
	}
	return &SMTPMailer{Host: host, Port: port, User: user, Pass: pass, To: to, send: smtp.SendMail}
}

// Compose builds the raw RFC 822 message.
func (s *SMTPMailer) Compose(m Message) []byte {
	subject := fmt.Sprintf("Portfolio Contact: %s", m.Name)
	body := fmt.Sprintf(`New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, m.Name, m.Email, m.Message)

	return []byte("To: " + s.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + s.User + "\r\n" +
		"Reply-To: " + m.Email + "\r\n" +
		"\r\n" +
		body + "\r\n")
}

// Send validates m and delivers it.
func (s *SMTPMailer) Send(m Message) error {
	if s.User == "" || s.Pass == "" {
		return ErrNotConfigured
	}
	if err := m.Validate(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)
	if err := s.send(s.Host+":"+s.Port, auth, s.User, []string{s.To}, s.Compose(m)); err != nil {
		return errors.Wrap(err, "contact: sending mail")
	}
	return nil
}
