package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ConfigFile is the optional settings file read from the working directory
const ConfigFile = "sheetmail.yaml"

// ErrMissingSettings is returned when one or more required variables are unset.
var ErrMissingSettings = errors.New("missing required environment variables")

// MissingSettingsError lists the environment variables that were required but empty.
type MissingSettingsError struct {
	Names []string
}

func (e *MissingSettingsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingSettings, strings.Join(e.Names, ", "))
}

func (e *MissingSettingsError) Unwrap() error {
	return ErrMissingSettings
}

// Settings holds all configuration for a campaign run.
// It is built once by Load and passed by value afterwards.
type Settings struct {
	Template  TemplateSettings  `mapstructure:"template"`
	Sheet     SheetSettings     `mapstructure:"sheet"`
	Mail      MailSettings      `mapstructure:"mail"`
	Send      SendSettings      `mapstructure:"send"`
	Log       LogSettings       `mapstructure:"log"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

// TemplateSettings holds the HTML template location and its placeholder list
type TemplateSettings struct {
	Path string `mapstructure:"path" env:"TEMPLATE_PATH" validate:"required"`
	// Fields are the row columns substituted as {{field}} tokens.
	// Unset means the template is sent verbatim.
	Fields []string `mapstructure:"fields" env:"REPLACE_ARRAY_NAMES"`
}

// SheetSettings holds spreadsheet source configuration
type SheetSettings struct {
	ID string `mapstructure:"id" env:"GOOGLE_SHEET_ID" validate:"required"`
	// CredentialsJSON switches the reader from the public CSV export to the
	// Sheets API with a service account.
	CredentialsJSON string        `mapstructure:"credentials_json" env:"GOOGLE_CREDENTIALS_JSON"`
	Range           string        `mapstructure:"range" env:"GOOGLE_SHEET_RANGE"`
	Timeout         time.Duration `mapstructure:"timeout" env:"HTTP_TIMEOUT"`
}

// MailSettings holds outbound mail configuration
type MailSettings struct {
	Host string `mapstructure:"host" env:"SEND_MAIL_HOST" validate:"required"`
	// Service selects the transport: "gmail_api", "resend", anything else is SMTP.
	Service  string `mapstructure:"service" env:"SEND_MAIL_SERVICE" validate:"required"`
	User     string `mapstructure:"user" env:"SEND_MAIL_USER" validate:"required"`
	Password string `mapstructure:"password" env:"SEND_MAIL_PASS" validate:"required"`
	Subject  string `mapstructure:"subject" env:"SEND_MAIL_SUBJECT" validate:"required"`
	Port     int    `mapstructure:"port" env:"SEND_MAIL_PORT"`
	FromName string `mapstructure:"from_name" env:"SEND_MAIL_FROM_NAME"`
	// TLS is the STARTTLS policy for SMTP: mandatory, opportunistic or none.
	TLS string `mapstructure:"tls" env:"SEND_MAIL_TLS"`
	// CredentialsJSON is the service account used by the gmail_api service.
	// When empty the sheet credentials are used.
	CredentialsJSON string `mapstructure:"credentials_json" env:"SEND_MAIL_CREDENTIALS_JSON"`
}

// SendSettings holds pacing configuration for the send loop
type SendSettings struct {
	Delay    time.Duration `mapstructure:"delay" env:"SEND_DELAY"`
	Cooldown time.Duration `mapstructure:"cooldown" env:"SEND_COOLDOWN"`
}

// LogSettings holds logging configuration
type LogSettings struct {
	Level         string `mapstructure:"level" env:"LOG_LEVEL"`
	Format        string `mapstructure:"format" env:"LOG_FORMAT"`
	File          string `mapstructure:"file" env:"LOG_FILE"`
	RetentionDays int    `mapstructure:"retention_days" env:"LOG_RETENTION_DAYS"`
}

// TelemetrySettings holds optional error reporting and metrics configuration
type TelemetrySettings struct {
	Environment    string `mapstructure:"environment" env:"APP_ENV"`
	SentryDSN      string `mapstructure:"sentry_dsn" env:"SENTRY_DSN"`
	PushgatewayURL string `mapstructure:"pushgateway_url" env:"PUSHGATEWAY_URL"`
}

// Load reads settings from defaults, an optional sheetmail.yaml, an optional
// .env file and the process environment, in increasing precedence.
func Load() (Settings, error) {
	// .env never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// Only the exact file name is accepted; a search by base name would
	// also match an extensionless "sheetmail" binary in the same directory.
	if _, err := os.Stat(ConfigFile); err == nil {
		v.SetConfigFile(ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := bindEnv(v, reflect.TypeOf(Settings{}), ""); err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	s.Template.Fields = splitFields(s.Template.Fields)

	if err := validate(s); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// bindEnv binds every leaf field carrying an env tag to its exact variable
// name, so no prefix or key mangling applies.
func bindEnv(v *viper.Viper, t reflect.Type, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Tag.Get("mapstructure")
		if prefix != "" {
			key = prefix + "." + key
		}
		if f.Type.Kind() == reflect.Struct {
			if err := bindEnv(v, f.Type, key); err != nil {
				return err
			}
			continue
		}
		name := f.Tag.Get("env")
		if name == "" {
			continue
		}
		if err := v.BindEnv(key, name); err != nil {
			return fmt.Errorf("failed to bind %s: %w", name, err)
		}
	}
	return nil
}

func validate(s Settings) error {
	vd := validator.New(validator.WithRequiredStructEnabled())
	vd.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})

	err := vd.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	return &MissingSettingsError{Names: names}
}

// splitFields normalizes the placeholder list. A single comma separated
// string is accepted as well as a list; entries are trimmed and empty ones dropped.
func splitFields(raw []string) []string {
	fields := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, f := range strings.Split(entry, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

func setDefaults(v *viper.Viper) {
	// Template defaults
	v.SetDefault("template.fields", []string{})

	// Sheet defaults
	v.SetDefault("sheet.range", "A:ZZ")
	v.SetDefault("sheet.timeout", "30s")

	// Mail defaults
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from_name", "")
	v.SetDefault("mail.tls", "mandatory")
	v.SetDefault("mail.credentials_json", "")

	// Send pacing defaults
	v.SetDefault("send.delay", "2s")
	v.SetDefault("send.cooldown", "20m")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "app.log")
	v.SetDefault("log.retention_days", 7)

	// Telemetry defaults
	v.SetDefault("telemetry.environment", "production")
	v.SetDefault("telemetry.sentry_dsn", "")
	v.SetDefault("telemetry.pushgateway_url", "")
}
