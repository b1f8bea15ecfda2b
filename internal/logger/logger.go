package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with application-specific methods
type Logger struct {
	zerolog.Logger
}

// New creates a new Logger instance writing to stdout and to every extra writer
func New(level string, format string, extra ...io.Writer) *Logger {
	// Set global log level
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var console io.Writer = os.Stdout
	if format == "text" || format == "console" {
		// Human-readable output for operators
		console = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	out := console
	if len(extra) > 0 {
		// Files always receive JSON lines
		out = zerolog.MultiLevelWriter(append([]io.Writer{console}, extra...)...)
	}

	logger := zerolog.New(out).With().Timestamp().Caller().Logger()
	return &Logger{Logger: logger}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithRunID returns a new logger with the campaign run ID attached
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		Logger: l.With().Str("run_id", runID).Logger(),
	}
}

// WithComponent returns a new logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// WithRow returns a new logger with the spreadsheet row and recipient attached
func (l *Logger) WithRow(row int, email string) *Logger {
	return &Logger{
		Logger: l.With().Int("row", row).Str("email", email).Logger(),
	}
}

// RunSummary logs the final counters of a campaign run
func (l *Logger) RunSummary(rows, sent, failed, skipped int, duration time.Duration) {
	l.Info().
		Int("rows", rows).
		Int("sent", sent).
		Int("failed", failed).
		Int("skipped", skipped).
		Dur("duration", duration).
		Msgf("Email sending completed. Success: %d, Failed: %d", sent, failed)
}
