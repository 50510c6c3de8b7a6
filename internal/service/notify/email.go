package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailNotifier sends operator mails over SMTP. Best effort: the executor
// logs send failures and moves on.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// NewEmailNotifier creates an SMTP notifier.
func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return &EmailNotifier{
		dialer: gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password),
		from:   cfg.From,
		to:     cfg.To,
	}
}

// Send delivers one mail. The context is honored only between dial attempts;
// gomail does not take a context.
func (n *EmailNotifier) Send(ctx context.Context, subject, body string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// NoopNotifier discards notifications; used when notify is disabled.
type NoopNotifier struct{}

func (NoopNotifier) Send(context.Context, string, string) error { return nil }
