package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error codes. Callers MUST use these constants instead of hardcoded strings.
const (
	// Validation (400). Inbound events that cannot be routed to a chat.
	ErrCodeValidationMalformedEvent ErrorCode = "validation_malformed_event"
	ErrCodeValidationInvalidJSON    ErrorCode = "validation_invalid_json"
	ErrCodeValidationMissingField   ErrorCode = "validation_missing_required_field"

	// Auth (403)
	ErrCodeAuthWebhookSecret ErrorCode = "auth_webhook_secret_invalid"

	// Not Found (404)
	ErrCodeNotFoundLocation ErrorCode = "not_found_location"

	// Internal/Upstream (500/502)
	ErrCodeInternalUnexpected        ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamForecast          ErrorCode = "upstream_forecast_unavailable"
	ErrCodeUpstreamChatDelivery      ErrorCode = "upstream_chat_delivery_failed"
	ErrCodeUpstreamUnavailable       ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited       ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamMalformedResponse ErrorCode = "upstream_malformed_response"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case s == string(ErrCodeAuthWebhookSecret):
		return http.StatusForbidden
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case s == string(ErrCodeUpstreamRateLimited):
		return http.StatusTooManyRequests
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. Domain and collaborator
// failures are expressed as AppError so callers can classify them with
// errors.As regardless of how deeply they are wrapped.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// CodeOf extracts the ErrorCode from the first AppError in err's chain.
// It returns the empty code when err carries no AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsLocationNotFound reports whether err means a place lookup produced no
// usable forecast.
func IsLocationNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFoundLocation
}

// IsUpstream reports whether err originates from an unreachable or failing
// collaborator (forecast provider or chat delivery API).
func IsUpstream(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "upstream_")
}

// IsMalformedEvent reports whether err describes an inbound event that
// cannot be attributed to a chat.
func IsMalformedEvent(err error) bool {
	switch CodeOf(err) {
	case ErrCodeValidationMalformedEvent, ErrCodeValidationInvalidJSON, ErrCodeValidationMissingField:
		return true
	}
	return false
}
