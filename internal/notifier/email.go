package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// EmailNotifier sends reports over SMTP with implicit TLS and PLAIN auth.
type EmailNotifier struct {
	Host       string
	Port       int
	Sender     string
	Password   string
	Recipients []string
	Timeout    time.Duration
}

// NewEmailNotifier creates a notifier. Missing recipients or credentials are
// reported as skips at send time, not as construction errors.
func NewEmailNotifier(host string, port int, sender, password string, recipients []string, timeout time.Duration) *EmailNotifier {
	return &EmailNotifier{
		Host:       host,
		Port:       port,
		Sender:     sender,
		Password:   password,
		Recipients: recipients,
		Timeout:    timeout,
	}
}

func (e *EmailNotifier) Name() string { return "email" }

// Notify sends msg to every recipient.
func (e *EmailNotifier) Notify(ctx context.Context, msg Message) Result {
	if len(e.Recipients) == 0 {
		return Skipped(e.Name(), "no recipient configured")
	}
	if e.Sender == "" || e.Password == "" {
		return Skipped(e.Name(), "sender credentials not configured")
	}

	m, err := e.buildMessage(msg)
	if err != nil {
		return Failed(e.Name(), err)
	}

	client, err := mail.NewClient(e.Host,
		mail.WithPort(e.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(e.Sender),
		mail.WithPassword(e.Password),
		mail.WithTimeout(e.Timeout),
	)
	if err != nil {
		return Failed(e.Name(), fmt.Errorf("create smtp client: %w", err))
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return Failed(e.Name(), fmt.Errorf("send to %s:%d: %w", e.Host, e.Port, err))
	}
	return Sent(e.Name())
}

func (e *EmailNotifier) buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(e.Sender); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", e.Sender, err)
	}
	if err := m.To(e.Recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}
