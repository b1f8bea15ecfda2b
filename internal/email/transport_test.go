package email

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestNewTransport(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TransportConfig
		want    any
		wantErr bool
	}{
		{name: "smtp by default", cfg: TransportConfig{Service: "gmail", Host: "smtp.gmail.com"}, want: &SMTPTransport{}},
		{name: "explicit smtp", cfg: TransportConfig{Service: "smtp"}, want: &SMTPTransport{}},
		{name: "resend", cfg: TransportConfig{Service: "Resend", Password: "re_123"}, want: &ResendTransport{}},
		{name: "gmail api", cfg: TransportConfig{Service: "gmail_api", CredentialsJSON: "{}"}, want: &GmailTransport{}},
		{name: "gmail api without credentials", cfg: TransportConfig{Service: "gmail_api"}, wantErr: true},
		{name: "unknown tls mode", cfg: TransportConfig{Service: "smtp", TLS: "sometimes"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTransport(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, tr)
		})
	}
}

func TestNewSMTPTransport_Defaults(t *testing.T) {
	tr := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com"})
	assert.Equal(t, 587, tr.config.Port)
	assert.NotZero(t, tr.config.Timeout)
}

func TestSMTPTransport_SendWithoutConnect(t *testing.T) {
	tr := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com"})
	err := tr.Send(context.Background(), Message{From: "a@example.com", To: "b@example.com"})
	require.ErrorIs(t, err, ErrNotConnected)
	require.NoError(t, tr.Close())
}

func TestEnvelope(t *testing.T) {
	from, to, err := envelope(Message{From: "Campaign <campaign@example.com>", To: " ann@example.com "})
	require.NoError(t, err)
	assert.Equal(t, "campaign@example.com", from)
	assert.Equal(t, "ann@example.com", to)

	_, _, err = envelope(Message{From: "campaign@example.com", To: "not an address"})
	require.Error(t, err)
}

func TestParseTLSPolicy(t *testing.T) {
	tests := []struct {
		mode    string
		want    mail.TLSPolicy
		wantErr bool
	}{
		{mode: "", want: mail.TLSMandatory},
		{mode: "Mandatory", want: mail.TLSMandatory},
		{mode: "opportunistic", want: mail.TLSOpportunistic},
		{mode: "none", want: mail.NoTLS},
		{mode: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got, err := ParseTLSPolicy(tt.mode)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessage_FromHeader(t *testing.T) {
	assert.Equal(t, "a@example.com", Message{From: "a@example.com"}.FromHeader())
	assert.Equal(t, "Team <a@example.com>", Message{From: "a@example.com", FromName: "Team"}.FromHeader())
}

func TestBuildMIMEMessage(t *testing.T) {
	raw := buildMIMEMessage(Message{
		From:     "campaign@example.com",
		To:       "ann@example.com",
		Subject:  "Grüße",
		HTMLBody: "<p>Hallo José</p>",
	})

	assert.Contains(t, raw, "From: campaign@example.com\r\n")
	assert.Contains(t, raw, "To: ann@example.com\r\n")
	assert.Contains(t, raw, "Subject: =?UTF-8?b?")
	assert.Contains(t, raw, "Content-Type: multipart/alternative; boundary=boundary_sheetmail_email")
	assert.Equal(t, 1, strings.Count(raw, "Content-Type: text/html; charset=UTF-8"))
	assert.Contains(t, raw, base64.StdEncoding.EncodeToString([]byte("<p>Hallo José</p>")))
	assert.True(t, strings.HasSuffix(raw, "--boundary_sheetmail_email--\r\n"))
}

func TestWrapBase64(t *testing.T) {
	long := strings.Repeat("a", 200)
	wrapped := wrapBase64(long)
	for _, line := range strings.Split(wrapped, "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(wrapped, "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, long, string(decoded))
}

func TestGmailTransport_ConnectValidation(t *testing.T) {
	ctx := context.Background()

	require.Error(t, NewGmailTransport(GmailConfig{SenderAddress: "a@example.com"}).Connect(ctx))
	require.Error(t, NewGmailTransport(GmailConfig{CredentialsJSON: "{}"}).Connect(ctx))
	require.Error(t, NewGmailTransport(GmailConfig{CredentialsJSON: "nope", SenderAddress: "a@example.com"}).Connect(ctx))
}

func TestGmailTransport_SendWithoutConnect(t *testing.T) {
	err := NewGmailTransport(GmailConfig{}).Send(context.Background(), Message{})
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestResendTransport_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`))
	}))
	defer srv.Close()

	tr := NewResendTransport(ResendConfig{APIKey: "re_test", BaseURL: srv.URL + "/"})
	require.NoError(t, tr.Connect(context.Background()))

	err := tr.Send(context.Background(), Message{
		From:     "campaign@example.com",
		FromName: "Campaign",
		To:       "ann@example.com",
		Subject:  "Hello",
		HTMLBody: "<p>Hi</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "Campaign <campaign@example.com>", got["from"])
	assert.Equal(t, []any{"ann@example.com"}, got["to"])
	assert.Equal(t, "Hello", got["subject"])
	assert.Equal(t, "<p>Hi</p>", got["html"])
}

func TestResendTransport_ConnectRequiresKey(t *testing.T) {
	tr := NewResendTransport(ResendConfig{})
	require.Error(t, tr.Connect(context.Background()))
	require.ErrorIs(t, tr.Send(context.Background(), Message{}), ErrNotConnected)
}
