// Package mail delivers confirmation codes.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/config"
	gomail "github.com/wneessen/go-mail"
)

// Sender delivers a plain-text message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New returns the sender selected by cfg.MailBackend.
func New(cfg *config.Config) (Sender, error) {
	switch cfg.MailBackend {
	case "smtp":
		return NewSMTPSender(cfg)
	case "log", "":
		return &LogSender{From: cfg.MailFrom}, nil
	default:
		return nil, fmt.Errorf("unsupported mail backend: %s", cfg.MailBackend)
	}
}

type SMTPSender struct {
	client *gomail.Client
	from   string
}

func NewSMTPSender(cfg *config.Config) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.SMTPUsername),
			gomail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := gomail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.MailFrom}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. It is the
// development default.
type LogSender struct {
	From string
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	slog.Info("mail", "from", s.From, "to", to, "subject", subject, "body", body)
	return nil
}

// Message is one delivery recorded by Outbox.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Outbox keeps messages in memory so tests can read codes back.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
}

func (o *Outbox) Send(_ context.Context, to, subject, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, Message{To: to, Subject: subject, Body: body})
	return nil
}

// Last returns the most recent message sent to addr.
func (o *Outbox) Last(addr string) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].To == addr {
			return o.messages[i], true
		}
	}
	return Message{}, false
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.messages)
}
