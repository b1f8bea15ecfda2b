package email

import (
	"context"
	"fmt"
	"net/url"

	"github.com/resend/resend-go/v3"
)

// ResendConfig holds Resend email provider configuration.
type ResendConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// ResendTransport implements Transport using the Resend API.
type ResendTransport struct {
	config ResendConfig
	client *resend.Client
}

// NewResendTransport creates a new Resend transport.
func NewResendTransport(cfg ResendConfig) *ResendTransport {
	return &ResendTransport{config: cfg}
}

// Connect prepares the API client. Resend is stateless, so only the key and endpoint are checked.
func (s *ResendTransport) Connect(_ context.Context) error {
	s.client = nil

	if s.config.APIKey == "" {
		return fmt.Errorf("resend: API key is required")
	}

	client := resend.NewClient(s.config.APIKey)
	if s.config.BaseURL != "" {
		u, err := url.Parse(s.config.BaseURL)
		if err != nil {
			return fmt.Errorf("resend: invalid base URL: %w", err)
		}
		client.BaseURL = u
	}

	s.client = client
	return nil
}

// Send implements Transport.
func (s *ResendTransport) Send(ctx context.Context, msg Message) error {
	if s.client == nil {
		return ErrNotConnected
	}

	req := &resend.SendEmailRequest{
		From:    msg.FromHeader(),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}

	return nil
}

// Close drops the API client.
func (s *ResendTransport) Close() error {
	s.client = nil
	return nil
}
