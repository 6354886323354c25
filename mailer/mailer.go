package mailer

import (
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"chat-screen-monitor/config"
)

// Sender delivers alert emails. The monitor depends on this interface so
// tests can capture sends without a live SMTP server.
type Sender interface {
	Send(to []string, subject, textBody, htmlBody string) error
}

// SMTPSender sends via standard SMTP submission. Port 465 uses implicit TLS,
// anything else STARTTLS.
type SMTPSender struct {
	cfg config.Email
}

// NewSMTPSender creates a sender for the given email settings.
func NewSMTPSender(cfg config.Email) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers one message with alternative text and HTML bodies.
func (s *SMTPSender) Send(to []string, subject, textBody, htmlBody string) error {
	if !s.cfg.Configured() {
		return fmt.Errorf("email transport not configured")
	}

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.SMTPUser),
		gomail.WithPassword(s.cfg.SMTPPass),
	}
	if s.cfg.SMTPPort == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(s.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("email client: %w", err)
	}

	msg := gomail.NewMsg()
	from := s.cfg.From
	if from == "" {
		from = s.cfg.SMTPUser
	}
	if err := msg.From(from); err != nil {
		return fmt.Errorf("email from address: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return fmt.Errorf("email recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, textBody)
	if htmlBody != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, htmlBody)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}
