package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Transport is the interface that all delivery providers must implement.
// A transport holds at most one live session; Connect replaces it.
type Transport interface {
	// Connect opens and authenticates a session with the provider.
	Connect(ctx context.Context) error
	// Send delivers one message over the current session.
	Send(ctx context.Context, msg Message) error
	// Close ends the current session, if any.
	Close() error
}

// Message represents an email message to be sent.
type Message struct {
	From     string // sender address
	FromName string // optional sender display name
	To       string // recipient email address
	Subject  string // email subject
	HTMLBody string // HTML email body
}

// FromHeader returns the From header value, with the display name when set
func (m Message) FromHeader() string {
	if m.FromName == "" {
		return m.From
	}
	return fmt.Sprintf("%s <%s>", m.FromName, m.From)
}

// Service names accepted by NewTransport
const (
	ServiceGmailAPI = "gmail_api"
	ServiceResend   = "resend"
)

// TransportConfig holds everything needed to build any transport.
type TransportConfig struct {
	// Service selects the provider; unknown names use SMTP.
	Service  string
	Host     string
	Port     int
	Username string
	Password string
	// TLS is the SMTP STARTTLS mode, see ParseTLSPolicy.
	TLS string
	// CredentialsJSON is the service account key used by the Gmail API transport.
	CredentialsJSON string
}

// NewTransport builds the transport selected by cfg.Service
func NewTransport(cfg TransportConfig) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Service)) {
	case ServiceGmailAPI:
		if cfg.CredentialsJSON == "" {
			return nil, errors.New("gmail_api: SEND_MAIL_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_JSON is required")
		}
		return NewGmailTransport(GmailConfig{
			CredentialsJSON: cfg.CredentialsJSON,
			SenderAddress:   cfg.Username,
		}), nil
	case ServiceResend:
		return NewResendTransport(ResendConfig{APIKey: cfg.Password}), nil
	default:
		policy, err := ParseTLSPolicy(cfg.TLS)
		if err != nil {
			return nil, err
		}
		return NewSMTPTransport(SMTPConfig{
			Host:      cfg.Host,
			Port:      cfg.Port,
			Username:  cfg.Username,
			Password:  cfg.Password,
			TLSPolicy: policy,
		}), nil
	}
}
