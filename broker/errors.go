package broker

import (
	"fmt"
	"net/http"
)

// Stable failure codes surfaced to callers.
const (
	CodeRateLimited     = "rate_limit_exceeded"
	CodeMissingConfig   = "missing_config"
	CodeInvalidConfig   = "invalid_config"
	CodeAPIError        = "api_error"
	CodeInvalidResponse = "invalid_response"
)

// Error classifies a session-request failure. It carries a stable code and
// the HTTP status for the caller; it never carries credentials or raw
// upstream payloads.
type Error struct {
	Code   string
	Status int
	// UpstreamStatus is set for invalid_response failures.
	UpstreamStatus int
}

func (e *Error) Error() string {
	if e.UpstreamStatus != 0 {
		return fmt.Sprintf("%s (upstream status %d)", e.Code, e.UpstreamStatus)
	}
	return e.Code
}

func rateLimited() *Error {
	return &Error{Code: CodeRateLimited, Status: http.StatusTooManyRequests}
}

func missingConfig(status int) *Error {
	return &Error{Code: CodeMissingConfig, Status: status}
}

func invalidConfig(status int) *Error {
	return &Error{Code: CodeInvalidConfig, Status: status}
}

func apiError() *Error {
	return &Error{Code: CodeAPIError, Status: http.StatusBadGateway}
}

func invalidResponse(upstreamStatus int) *Error {
	status := upstreamStatus
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}
	return &Error{Code: CodeInvalidResponse, Status: status, UpstreamStatus: upstreamStatus}
}
