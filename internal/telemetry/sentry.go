package telemetry

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/sheetmail/sheetmail/internal/logger"
)

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	// DSN is the Sentry Data Source Name. Empty disables error tracking.
	DSN string

	// Environment identifies the deployment environment (development, production)
	Environment string

	// Release is the application version
	Release string

	// RunID tags every event with the campaign run it belongs to
	RunID string
}

var sentryEnabled bool

// InitSentry initializes the Sentry client.
// Returns a cleanup function that flushes pending events; it is always non-nil on success.
func InitSentry(cfg SentryConfig, log *logger.Logger) (func(), error) {
	sentryEnabled = false

	if cfg.DSN == "" {
		log.Debug().Msg("Sentry disabled (SENTRY_DSN not configured)")
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	if cfg.RunID != "" {
		sentry.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("run_id", cfg.RunID)
		})
	}

	sentryEnabled = true
	log.Info().
		Str("environment", cfg.Environment).
		Str("release", cfg.Release).
		Msg("Sentry initialized")

	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}

// IsEnabled returns whether Sentry is currently enabled
func IsEnabled() bool {
	return sentryEnabled
}

// CaptureError captures an error with optional extras.
// Safe to call even when Sentry is disabled.
func CaptureError(err error, extras ...map[string]any) {
	if !IsEnabled() || err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		if len(extras) > 0 {
			for key, value := range extras[0] {
				scope.SetExtra(key, value)
			}
		}
		sentry.CaptureException(err)
	})
}

// CaptureMessage captures a non-error event, such as a run that finished with failures
func CaptureMessage(message string, level sentry.Level, extras ...map[string]any) {
	if !IsEnabled() {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		if len(extras) > 0 {
			for key, value := range extras[0] {
				scope.SetExtra(key, value)
			}
		}
		sentry.CaptureMessage(message)
	})
}

// Recover logs a panic with its stack, reports it to Sentry and re-panics.
// Use: defer telemetry.Recover(log)
func Recover(log *logger.Logger) {
	if r := recover(); r != nil {
		log.Error().
			Interface("error", r).
			Str("stack", string(debug.Stack())).
			Msg("panic recovered")

		if IsEnabled() {
			sentry.CurrentHub().Recover(r)
			sentry.Flush(2 * time.Second)
		}
		panic(r)
	}
}
