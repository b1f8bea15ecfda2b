package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/sheetmail/sheetmail/internal/campaign"
	"github.com/sheetmail/sheetmail/internal/config"
	"github.com/sheetmail/sheetmail/internal/email"
	"github.com/sheetmail/sheetmail/internal/logger"
	"github.com/sheetmail/sheetmail/internal/render"
	"github.com/sheetmail/sheetmail/internal/sheet"
	"github.com/sheetmail/sheetmail/internal/telemetry"
)

// logFileOff disables the log file when set as LOG_FILE
const logFileOff = "off"

// app holds what every command needs for one invocation
type app struct {
	cfg     config.Settings
	log     *logger.Logger
	runID   string
	metrics *telemetry.Metrics

	logFile     io.Closer
	flushSentry func()
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		runID:       uuid.NewString(),
		flushSentry: func() {},
	}

	var extra []io.Writer
	if path := cfg.Log.File; path != "" && !strings.EqualFold(path, logFileOff) {
		f, err := logger.OpenDailyFile(path, cfg.Log.RetentionDays)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		extra = append(extra, f)
	}

	a.log = logger.New(cfg.Log.Level, cfg.Log.Format, extra...).WithRunID(a.runID)
	a.log.Info().Str("version", version).Msg("Starting Google Sheets reader")

	flush, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:         cfg.Telemetry.SentryDSN,
		Environment: cfg.Telemetry.Environment,
		Release:     version,
		RunID:       a.runID,
	}, a.log)
	if err != nil {
		// error tracking is optional
		a.log.Warn().Err(err).Msg("Sentry disabled")
	} else {
		a.flushSentry = flush
	}

	return a, nil
}

// runner builds the campaign runner. sender is nil for commands that never send.
func (a *app) runner(ctx context.Context, sender campaign.Sender) (*campaign.Runner, error) {
	tmpl, err := render.Load(a.cfg.Template.Path, a.cfg.Template.Fields)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Strs("fields", tmpl.Fields()).Str("path", a.cfg.Template.Path).Msg("Template loaded")

	source, err := a.reader(ctx)
	if err != nil {
		return nil, err
	}

	return campaign.NewRunner(source, tmpl, sender, a.log,
		campaign.WithDelay(a.cfg.Send.Delay),
		campaign.WithMetrics(a.metrics),
	), nil
}

// reader uses the Sheets API when a service account is configured and the
// public CSV export otherwise.
func (a *app) reader(ctx context.Context) (sheet.Reader, error) {
	if a.cfg.Sheet.CredentialsJSON == "" {
		return sheet.NewCSVExportReader(a.cfg.Sheet.ID, a.cfg.Sheet.Timeout, a.log), nil
	}

	return sheet.NewAPIReader(ctx, sheet.APIConfig{
		SheetID:         a.cfg.Sheet.ID,
		Range:           a.cfg.Sheet.Range,
		CredentialsJSON: a.cfg.Sheet.CredentialsJSON,
	}, a.log)
}

// mailer builds the mailer for the configured service and turns on run metrics.
// The gmail_api service falls back to the sheet's service account.
func (a *app) mailer() (*email.Mailer, error) {
	credentials := a.cfg.Mail.CredentialsJSON
	if credentials == "" {
		credentials = a.cfg.Sheet.CredentialsJSON
	}

	transport, err := email.NewTransport(email.TransportConfig{
		Service:         a.cfg.Mail.Service,
		Host:            a.cfg.Mail.Host,
		Port:            a.cfg.Mail.Port,
		Username:        a.cfg.Mail.User,
		Password:        a.cfg.Mail.Password,
		TLS:             a.cfg.Mail.TLS,
		CredentialsJSON: credentials,
	})
	if err != nil {
		return nil, err
	}

	a.metrics = telemetry.NewMetrics()
	a.log.Info().Str("service", a.cfg.Mail.Service).Msg("Mail transport configured")

	return email.NewMailer(transport, email.MailerConfig{
		From:     a.cfg.Mail.User,
		FromName: a.cfg.Mail.FromName,
		Subject:  a.cfg.Mail.Subject,
		Cooldown: a.cfg.Send.Cooldown,
	}, a.log), nil
}

func (a *app) reportFailures(res campaign.Result) {
	rows := make([]int, 0, len(res.Failures))
	for _, f := range res.Failures {
		rows = append(rows, f.RowNumber)
	}

	telemetry.CaptureMessage("campaign finished with failed emails", sentry.LevelWarning, map[string]any{
		"sent":        res.Sent,
		"failed":      res.Failed,
		"failed_rows": rows,
		"report":      res.Report,
	})
}

// close logs and reports err, pushes metrics and releases the log file
func (a *app) close(err error) {
	if err != nil {
		a.log.Error().Err(err).Msgf("An error occurred: %v", err)
		telemetry.CaptureError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if pushErr := a.metrics.Push(ctx, a.cfg.Telemetry.PushgatewayURL, a.runID); pushErr != nil {
		a.log.Warn().Err(pushErr).Msg("Failed to push metrics")
	}

	a.flushSentry()

	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
