package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sheetmail/sheetmail/internal/logger"
)

// DefaultCooldown is how long sending pauses after a connect or send failure
const DefaultCooldown = 20 * time.Minute

const reportTimeLayout = "2006-01-02 15:04:05"

// FailedEmail records one message that could not be delivered.
type FailedEmail struct {
	Email     string
	RowNumber int
	Error     string
	Time      time.Time
}

// MailerConfig holds the fixed envelope of every message.
type MailerConfig struct {
	From     string
	FromName string
	Subject  string
	Cooldown time.Duration
}

// Mailer owns one delivery session and sends personalized messages one at a
// time. After any failure it waits out a global cooldown and reconnects
// before the next send. It is not safe for concurrent use.
type Mailer struct {
	transport Transport
	config    MailerConfig
	log       *logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	connected   bool
	lastErrorAt time.Time
	failed      []FailedEmail
}

// MailerOption configures a Mailer.
type MailerOption func(*Mailer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MailerOption {
	return func(m *Mailer) {
		m.now = now
	}
}

// WithSleep overrides how the cooldown wait blocks.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) MailerOption {
	return func(m *Mailer) {
		m.sleep = sleep
	}
}

// NewMailer creates a disconnected Mailer. Call Connect to open the session.
func NewMailer(transport Transport, cfg MailerConfig, log *logger.Logger, opts ...MailerOption) *Mailer {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	m := &Mailer{
		transport: transport,
		config:    cfg,
		log:       log.WithComponent("mailer"),
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect opens and authenticates a new session. On failure the cooldown
// starts and the Mailer stays disconnected.
func (m *Mailer) Connect(ctx context.Context) error {
	m.connected = false
	if err := m.transport.Connect(ctx); err != nil {
		m.lastErrorAt = m.now()
		m.log.Error().Err(err).Msg("Failed to connect to email server")
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	m.connected = true
	m.lastErrorAt = time.Time{}
	m.log.Info().Msg("Successfully connected to email server")
	return nil
}

// SendEmail delivers html to the recipient. rowNumber is only used for
// logging and the failure report.
func (m *Mailer) SendEmail(ctx context.Context, to, html string, rowNumber int) error {
	log := m.log.WithRow(rowNumber, to)

	if err := m.checkCooldown(ctx, log); err != nil {
		reason := err.Error()
		if errors.Is(err, ErrCooldown) {
			reason = ErrCooldown.Error()
		}
		m.recordFailure(to, rowNumber, reason)
		return err
	}

	msg := Message{
		From:     m.config.From,
		FromName: m.config.FromName,
		To:       to,
		Subject:  m.config.Subject,
		HTMLBody: html,
	}

	if err := m.transport.Send(ctx, msg); err != nil {
		m.lastErrorAt = m.now()
		log.Error().Err(err).Msgf("Failed to send email to %s (Row %d)", to, rowNumber)
		m.recordFailure(to, rowNumber, err.Error())
		return fmt.Errorf("%w: %w", ErrSend, err)
	}

	log.Info().Msgf("Email sent successfully to %s (Row %d)", to, rowNumber)
	return nil
}

// checkCooldown blocks for the rest of the cooldown window after a failure
// and reconnects. A session that is simply not open is connected directly.
func (m *Mailer) checkCooldown(ctx context.Context, log *logger.Logger) error {
	if !m.lastErrorAt.IsZero() {
		wait := m.lastErrorAt.Add(m.config.Cooldown).Sub(m.now())
		if wait > 0 {
			log.Warn().Dur("wait", wait).
				Msgf("Rate limit reached. Waiting for %.0f seconds due to cooldown period", wait.Seconds())
			if err := m.sleep(ctx, wait); err != nil {
				return err
			}
			if err := m.Connect(ctx); err != nil {
				return fmt.Errorf("%w: %w", ErrCooldown, err)
			}
			return nil
		}
	}

	if !m.connected {
		return m.Connect(ctx)
	}
	return nil
}

func (m *Mailer) recordFailure(to string, rowNumber int, reason string) {
	m.failed = append(m.failed, FailedEmail{
		Email:     to,
		RowNumber: rowNumber,
		Error:     reason,
		Time:      m.now(),
	})
}

// FailedEmails returns a copy of the failure records in insertion order
func (m *Mailer) FailedEmails() []FailedEmail {
	return append([]FailedEmail(nil), m.failed...)
}

// Report renders the failure records for the operator
func (m *Mailer) Report() string {
	return FormatReport(m.failed)
}

// FormatReport renders failure records as a multi-line summary
func FormatReport(failed []FailedEmail) string {
	if len(failed) == 0 {
		return "No failed emails to report."
	}

	lines := []string{"Failed Emails Report:", "==================="}
	for _, f := range failed {
		lines = append(lines, fmt.Sprintf("Row %d: %s\nError: %s\nTime: %s\n-------------------",
			f.RowNumber, f.Email, f.Error, f.Time.Format(reportTimeLayout)))
	}
	return strings.Join(lines, "\n")
}

// Disconnect closes the session. Errors are logged, never returned.
func (m *Mailer) Disconnect() {
	if !m.connected {
		return
	}
	m.connected = false

	if err := m.transport.Close(); err != nil {
		m.log.Debug().Err(err).Msg("error while disconnecting from email server")
		return
	}
	m.log.Info().Msg("Disconnected from email server")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
