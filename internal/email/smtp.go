package email

import (
	"context"
	"fmt"
	"io"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"github.com/wneessen/go-mail/smtp"
)

// TLS modes accepted by ParseTLSPolicy
const (
	TLSModeMandatory     = "mandatory"
	TLSModeOpportunistic = "opportunistic"
	TLSModeNone          = "none"
)

// SMTPConfig holds SMTP connection parameters.
type SMTPConfig struct {
	Host     string
	Port     int // defaults to 587 (submission, STARTTLS)
	Username string
	Password string
	Timeout  time.Duration
	// TLSPolicy applies to non-465 ports. The zero value requires STARTTLS.
	TLSPolicy mail.TLSPolicy
}

// ParseTLSPolicy maps a SEND_MAIL_TLS value to a go-mail policy. Empty means mandatory.
func ParseTLSPolicy(mode string) (mail.TLSPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", TLSModeMandatory:
		return mail.TLSMandatory, nil
	case TLSModeOpportunistic:
		return mail.TLSOpportunistic, nil
	case TLSModeNone:
		return mail.NoTLS, nil
	default:
		return mail.TLSMandatory, fmt.Errorf("unknown TLS mode %q", mode)
	}
}

// SMTPTransport implements Transport over a single SMTP session. go-mail
// dials, negotiates STARTTLS and authenticates; the message itself is the
// same multipart/alternative document the Gmail transport sends.
type SMTPTransport struct {
	config  SMTPConfig
	client  *mail.Client
	session *smtp.Client
}

// NewSMTPTransport creates a new SMTP transport. No connection is made until Connect.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPTransport{config: cfg}
}

// Connect dials the server, upgrades with STARTTLS and authenticates.
// Any previous session is closed first.
func (t *SMTPTransport) Connect(ctx context.Context) error {
	_ = t.Close()

	client, err := mail.NewClient(t.config.Host, t.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp: failed to create client: %w", err)
	}

	session, err := client.DialToSMTPClientWithContext(ctx)
	if err != nil {
		return fmt.Errorf("smtp: failed to connect to %s:%d: %w", t.config.Host, t.config.Port, err)
	}

	t.client = client
	t.session = session
	return nil
}

// Send transmits msg over the open session
func (t *SMTPTransport) Send(_ context.Context, msg Message) error {
	if t.session == nil {
		return ErrNotConnected
	}

	from, to, err := envelope(msg)
	if err != nil {
		return err
	}

	if err := t.session.UpdateDeadline(t.config.Timeout); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}

	if err := t.transmit(from, to, buildMIMEMessage(msg)); err != nil {
		// leave the session usable for the next recipient
		_ = t.client.ResetWithSMTPClient(t.session)
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

func (t *SMTPTransport) transmit(from, to, body string) error {
	if err := t.session.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	if err := t.session.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO rejected: %w", err)
	}

	w, err := t.session.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}
	return nil
}

// Close ends the session with QUIT
func (t *SMTPTransport) Close() error {
	if t.session == nil {
		return nil
	}
	client, session := t.client, t.session
	t.client, t.session = nil, nil
	return client.CloseWithSMTPClient(session)
}

func (t *SMTPTransport) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(t.config.Port),
		mail.WithTimeout(t.config.Timeout),
	}

	switch t.config.Port {
	case 465:
		// Implicit TLS (SMTPS)
		opts = append(opts, mail.WithSSL())
	default:
		opts = append(opts, mail.WithTLSPolicy(t.config.TLSPolicy))
	}

	if t.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.config.Username),
			mail.WithPassword(t.config.Password),
		)
	}

	return opts
}

// envelope validates and returns the bare sender and recipient addresses
func envelope(msg Message) (string, string, error) {
	from, err := netmail.ParseAddress(msg.From)
	if err != nil {
		return "", "", fmt.Errorf("invalid from address: %w", err)
	}
	to, err := netmail.ParseAddress(msg.To)
	if err != nil {
		return "", "", fmt.Errorf("invalid to address: %w", err)
	}
	return from.Address, to.Address, nil
}
