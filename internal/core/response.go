package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"velobrief/internal/types"
)

// maxRequestBodySize caps inbound bodies. Telegram updates are a few KB.
const maxRequestBodySize = 1 << 20

// errorEnvelope is the body of every error the chassis writes.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      types.ErrorCode `json:"code"`
	Message   string          `json:"message"`
	Details   map[string]any  `json:"details,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// JSON writes data with the given status. A value that cannot be marshalled
// becomes a bare 500.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"code":"internal_unexpected_error","message":"failed to encode response"}}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes err as an error envelope. An *types.AppError anywhere in the
// chain picks the status and code; anything else is a 500 with a fixed
// message so wrapped causes never reach the caller.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{
		Code:      types.ErrCodeInternalUnexpected,
		Message:   "an unexpected error occurred",
		RequestID: types.GetRequestID(r.Context()),
	}
	status := http.StatusInternalServerError

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
		body.Message = appErr.Message
		body.Details = appErr.Details
		status = appErr.HTTPStatus()
	}
	JSON(w, r, status, errorEnvelope{Error: body})
}

// DecodeJSON reads exactly one JSON value from the body into dst. Unknown
// fields are accepted since the Bot API adds fields without notice. Any
// failure is an *types.AppError with code validation_invalid_json.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return types.NewAppError(types.ErrCodeValidationInvalidJSON, "request body must contain a single JSON value", nil)
	}
	return nil
}

func decodeError(err error) *types.AppError {
	msg := "request body is not valid JSON"
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		msg = "request body must not exceed 1MB"
	case errors.Is(err, io.EOF):
		msg = "request body must not be empty"
	}
	return types.NewAppError(types.ErrCodeValidationInvalidJSON, msg, err)
}
