package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a failed backend call: either a transport failure
// (StatusCode 0, Err set) or an error response.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
	Hint       string
	Code       string
	Err        error
}

// Error renders the message the way it is shown to users:
// "<message>: <details> (Hint: <hint>) [Code: <code>]".
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", e.StatusCode)
	}

	details := e.Details
	if e.Hint != "" {
		details += fmt.Sprintf(" (Hint: %s)", e.Hint)
	}
	if e.Code != "" {
		details += fmt.Sprintf(" [Code: %s]", e.Code)
	}
	details = strings.TrimSpace(details)
	if details == "" {
		return msg
	}
	return msg + ": " + details
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Message string `json:"message"`
	Hint    string `json:"hint"`
	Code    any    `json:"code"`
}
