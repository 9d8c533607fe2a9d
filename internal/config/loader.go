// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Populate BuildInfo from linker-injected variables.
//  5. Validate the struct using go-playground/validator.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the bot configuration. dotenvFiles lists
// optional .env files to read; when none are given, ".env" in the working
// directory is tried. Existing environment variables always win.
func LoadConfig(dotenvFiles ...string) (*Config, error) {
	time.Local = time.UTC

	// godotenv does NOT override variables already present in the environment.
	_ = godotenv.Load(dotenvFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, classifyValidationError(err)
	}
	if budget := cfg.Weather.LookupBudget + cfg.Telegram.Timeout; budget >= cfg.Server.RequestTimeout {
		return nil, &ConfigError{
			Type: ErrValidation,
			Message: fmt.Sprintf("FORECAST_LOOKUP_BUDGET + TELEGRAM_TIMEOUT (%s) must be below REQUEST_TIMEOUT (%s)",
				budget, cfg.Server.RequestTimeout),
		}
	}

	return &cfg, nil
}

// classifyValidationError separates absent required values from values
// that are present but malformed, naming the offending fields.
func classifyValidationError(err error) *ConfigError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ConfigError{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Namespace())
		} else {
			invalid = append(invalid, fe.Namespace())
		}
	}

	if len(invalid) == 0 {
		return &ConfigError{
			Type:    ErrMissingEnv,
			Message: "required configuration missing: " + strings.Join(missing, ", "),
			Err:     err,
		}
	}
	return &ConfigError{
		Type:    ErrValidation,
		Message: "configuration validation failed: " + strings.Join(append(missing, invalid...), ", "),
		Err:     err,
	}
}
