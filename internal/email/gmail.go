package email

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailConfig holds the configuration for the Gmail API transport.
type GmailConfig struct {
	// CredentialsJSON is the service account credentials JSON with domain-wide delegation.
	CredentialsJSON string
	// SenderAddress is the mailbox impersonated for sending.
	SenderAddress string
}

// GmailTransport implements Transport using the Gmail API.
type GmailTransport struct {
	config  GmailConfig
	service *gmail.Service
}

// NewGmailTransport creates a new GmailTransport. Credentials are checked on Connect.
func NewGmailTransport(cfg GmailConfig) *GmailTransport {
	return &GmailTransport{config: cfg}
}

// Connect parses the credentials and obtains an access token for the sender mailbox.
func (g *GmailTransport) Connect(ctx context.Context) error {
	g.service = nil

	if g.config.CredentialsJSON == "" {
		return fmt.Errorf("gmail: credentials JSON is required")
	}
	if g.config.SenderAddress == "" {
		return fmt.Errorf("gmail: sender address is required")
	}

	jwtConfig, err := google.JWTConfigFromJSON([]byte(g.config.CredentialsJSON), gmail.GmailSendScope)
	if err != nil {
		return fmt.Errorf("gmail: failed to parse credentials: %w", err)
	}

	// Impersonate the sender through domain-wide delegation
	jwtConfig.Subject = g.config.SenderAddress

	ts := jwtConfig.TokenSource(ctx)
	if _, err := ts.Token(); err != nil {
		return fmt.Errorf("gmail: failed to authenticate: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return fmt.Errorf("gmail: failed to create service: %w", err)
	}

	g.service = svc
	return nil
}

// Send sends an email via the Gmail API.
func (g *GmailTransport) Send(ctx context.Context, msg Message) error {
	if g.service == nil {
		return ErrNotConnected
	}

	gmailMsg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(buildMIMEMessage(msg))),
	}

	_, err := g.service.Users.Messages.Send("me", gmailMsg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail: failed to send email: %w", err)
	}

	return nil
}

// Close drops the API client. The Gmail API holds no connection state.
func (g *GmailTransport) Close() error {
	g.service = nil
	return nil
}
