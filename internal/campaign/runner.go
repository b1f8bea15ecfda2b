package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sheetmail/sheetmail/internal/email"
	"github.com/sheetmail/sheetmail/internal/logger"
	"github.com/sheetmail/sheetmail/internal/sheet"
	"github.com/sheetmail/sheetmail/internal/telemetry"
)

// DefaultDelay is the pause between two consecutive sends
const DefaultDelay = 2 * time.Second

// Renderer turns one row into an HTML body
type Renderer interface {
	Render(row sheet.Row) string
}

// Sender delivers rendered messages and keeps the failure log.
// *email.Mailer implements it.
type Sender interface {
	Connect(ctx context.Context) error
	SendEmail(ctx context.Context, to, html string, rowNumber int) error
	FailedEmails() []email.FailedEmail
	Report() string
	Disconnect()
}

// Result summarizes one run
type Result struct {
	Rows    int
	Sent    int
	Failed  int
	Skipped int
	// Report is the failure report, empty when nothing failed
	Report string
	// Failures lists the undelivered rows in send order
	Failures []email.FailedEmail
}

// Runner drives a campaign: fetch, duplicate check, then render and send row by row.
type Runner struct {
	source   sheet.Reader
	renderer Renderer
	sender   Sender
	log      *logger.Logger
	metrics  *telemetry.Metrics

	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithDelay sets the pause between sends. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.delay = d
	}
}

// WithSleep overrides how the inter-send delay blocks
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// WithClock overrides the time source used for the run duration
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithMetrics records run counters into m
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner creates a Runner. sender may be nil for Check and Preview.
func NewRunner(source sheet.Reader, renderer Renderer, sender Sender, log *logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		source:   source,
		renderer: renderer,
		sender:   sender,
		log:      log.WithComponent("campaign"),
		delay:    DefaultDelay,
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sends the campaign. Individual send failures never abort the run; they
// are counted and listed in Result.Report. The sender is always disconnected.
func (r *Runner) Run(ctx context.Context) (res Result, err error) {
	start := r.now()
	defer func() {
		r.sender.Disconnect()
		r.metrics.RecordRun(r.now().Sub(start), runStatus(res, err))
	}()

	if err := r.sender.Connect(ctx); err != nil {
		// the mailer retries after its cooldown on the first send
		r.log.Warn().Err(err).Msg("Initial connection failed")
	}

	rows, err := r.Check(ctx)
	if err != nil {
		return res, err
	}
	res.Rows = len(rows)

	r.log.Info().Msg("Processing email templates:")
	attempted := 0
	for i, row := range rows {
		rowNumber := i + 1

		to := row.Email()
		if to == "" {
			res.Skipped++
			r.metrics.RecordSkipped()
			r.log.Debug().Int("row", rowNumber).Msg("Skipping row without email")
			continue
		}

		if attempted > 0 && r.delay > 0 {
			if err := r.sleep(ctx, r.delay); err != nil {
				r.finish(&res, start)
				return res, err
			}
		}
		if err := ctx.Err(); err != nil {
			r.finish(&res, start)
			return res, err
		}
		attempted++

		html := r.renderer.Render(row)
		r.log.Info().Msgf("%d - %s", rowNumber, to)

		if err := r.sender.SendEmail(ctx, to, html, rowNumber); err != nil {
			res.Failed++
			r.metrics.RecordFailed()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.finish(&res, start)
				return res, err
			}
			continue
		}
		res.Sent++
		r.metrics.RecordSent()
	}

	r.finish(&res, start)
	return res, nil
}

// finish logs the counters and attaches the failure report
func (r *Runner) finish(res *Result, start time.Time) {
	r.log.RunSummary(res.Rows, res.Sent, res.Failed, res.Skipped, r.now().Sub(start))

	if res.Failed > 0 {
		res.Failures = r.sender.FailedEmails()
		res.Report = r.sender.Report()
		r.log.Warn().Msg("\n" + res.Report)
	}
}

// Check fetches the rows and rejects empty sheets and duplicate addresses
func (r *Runner) Check(ctx context.Context) ([]sheet.Row, error) {
	rows, err := r.source.Fetch(ctx)
	if err != nil || len(rows) == 0 {
		r.log.Error().Err(err).Msg("No data found in Google Sheets")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoData, err)
		}
		return nil, ErrNoData
	}
	r.metrics.RecordRows(len(rows))

	if dups := sheet.FindDuplicateEmails(rows); len(dups) > 0 {
		r.log.Error().Msgf("Found %d duplicate emails:", len(dups))
		for _, d := range dups {
			r.log.Error().Msgf("- %s", d)
		}
		return nil, &DuplicateEmailsError{Emails: dups}
	}

	r.log.Info().Int("rows", len(rows)).Msg("No duplicate emails found")
	return rows, nil
}

// Preview renders row n (1-based, header excluded) without sending anything
func (r *Runner) Preview(ctx context.Context, n int) (string, error) {
	rows, err := r.source.Fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoData, err)
	}
	if n < 1 || n > len(rows) {
		return "", fmt.Errorf("%w: %d of %d", ErrRowNotFound, n, len(rows))
	}
	return r.renderer.Render(rows[n-1]), nil
}

func runStatus(res Result, err error) string {
	switch {
	case err != nil:
		return "error"
	case res.Failed > 0:
		return "partial"
	default:
		return "success"
	}
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
