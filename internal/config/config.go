// Package config defines the configuration structure for the VeloBrief bot.
// Configuration is loaded once at process initialization and is immutable
// thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> struct defaults (Lowest)
//
// Any missing required value or invalid format makes LoadConfig fail, and the
// entry point exits before serving traffic.
package config

import (
	"time"

	"velobrief/internal/types"
)

// SecretString is an alias for types.SecretString so configuration secrets
// never reach logs.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subset they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Telegram      TelegramConfig
	Weather       WeatherConfig
	Briefing      BriefingConfig
	Session       SessionConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
}

// TelegramConfig holds the chat delivery API credentials and endpoint.
type TelegramConfig struct {
	Token SecretString `envconfig:"TELEGRAM_TOKEN" validate:"required"`
	// WebhookSecret is compared against X-Telegram-Bot-Api-Secret-Token.
	// Leave empty to accept unsigned updates (local development only).
	WebhookSecret SecretString  `envconfig:"WEBHOOK_SECRET"`
	APIURL        string        `envconfig:"TELEGRAM_API_URL" default:"https://api.telegram.org" validate:"required,url"`
	Timeout       time.Duration `envconfig:"TELEGRAM_TIMEOUT" default:"10s"`
}

// WeatherConfig holds the forecast provider settings.
type WeatherConfig struct {
	APIKey   SecretString  `envconfig:"OPENWEATHER_API_KEY" validate:"required"`
	APIURL   string        `envconfig:"OPENWEATHER_API_URL" default:"https://api.openweathermap.org" validate:"required,url"`
	Language string        `envconfig:"OPENWEATHER_LANG" default:"en"`
	Timeout  time.Duration `envconfig:"OPENWEATHER_TIMEOUT" default:"10s"`
	// LookupBudget bounds one lookup including retries. It must leave room
	// for the reply inside REQUEST_TIMEOUT.
	LookupBudget time.Duration `envconfig:"FORECAST_LOOKUP_BUDGET" default:"15s"`
	RPS          float64       `envconfig:"OPENWEATHER_RPS" default:"1" validate:"gt=0"`
	Burst        int           `envconfig:"OPENWEATHER_BURST" default:"5" validate:"gte=1"`
	CacheTTL     time.Duration `envconfig:"FORECAST_CACHE_TTL" default:"10m"`
}

// BriefingConfig tunes the forecast window and the advice policy.
type BriefingConfig struct {
	Horizon          time.Duration `envconfig:"BRIEFING_HORIZON" default:"6h"`
	MaxSamples       int           `envconfig:"BRIEFING_MAX_SAMPLES" default:"2" validate:"gte=1"`
	AdvicePolicy     string        `envconfig:"BRIEFING_ADVICE_POLICY" default:"circular_mean" validate:"oneof=circular_mean last_sample"`
	TimezoneFallback string        `envconfig:"BRIEFING_TIMEZONE_FALLBACK" default:"UTC"`
}

// SessionConfig bounds the in-memory conversation store.
type SessionConfig struct {
	TTL           time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	MaxSessions   int           `envconfig:"SESSION_MAX" default:"10000" validate:"gte=1"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"5m"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"VeloBrief"`
	AWSRegion       string `envconfig:"AWS_REGION" default:"us-east-1"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
