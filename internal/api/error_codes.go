package api

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode is a machine-readable error class for JSON error output.
type ErrorCode string

const (
	ErrBadRequest   ErrorCode = "bad_request"
	ErrUnauthorized ErrorCode = "unauthorized"
	ErrForbidden    ErrorCode = "forbidden"
	ErrNotFound     ErrorCode = "not_found"
	ErrRateLimited  ErrorCode = "rate_limited"
	ErrServerError  ErrorCode = "server_error"
	ErrTimeout      ErrorCode = "timeout"
	ErrCircuitOpen  ErrorCode = "circuit_open"
	ErrUnknown      ErrorCode = "unknown"
)

// IsRetryable returns true if errors with this code may succeed later.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case ErrRateLimited, ErrServerError, ErrTimeout, ErrCircuitOpen:
		return true
	default:
		return false
	}
}

// Suggestion returns a human-readable hint for resolving this error.
func (c ErrorCode) Suggestion() string {
	switch c {
	case ErrUnauthorized:
		return "Run 'barcodeapi auth login' to store a valid token"
	case ErrForbidden:
		return "Check that your token allows this operation"
	case ErrNotFound:
		return "Check the barcode type or share key"
	case ErrRateLimited:
		return "Token limit reached; check 'barcodeapi limiter' and retry later"
	case ErrBadRequest:
		return "Check the data is valid for the requested barcode type"
	case ErrServerError:
		return "The server encountered an error; try again later"
	case ErrTimeout:
		return "The request timed out; check network connectivity and retry"
	case ErrCircuitOpen:
		return "Too many recent server failures; wait before retrying"
	default:
		return ""
	}
}

// ErrorCodeFromStatus maps an HTTP status code to an ErrorCode.
func ErrorCodeFromStatus(statusCode int) ErrorCode {
	switch statusCode {
	case 400, 409, 422:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	default:
		if statusCode >= 500 && statusCode < 600 {
			return ErrServerError
		}
		return ErrUnknown
	}
}

// StructuredError provides machine-readable error information.
type StructuredError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	Suggestion string         `json:"suggestion,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// StructuredErrorFromError classifies err. It returns nil for a nil error.
func StructuredErrorFromError(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		code := ErrorCodeFromStatus(apiErr.StatusCode)
		ctx := map[string]any{"status_code": apiErr.StatusCode}
		if apiErr.RequestID != "" {
			ctx["request_id"] = apiErr.RequestID
		}
		return &StructuredError{
			Code:       code,
			Message:    apiErr.Body,
			Retryable:  code.IsRetryable(),
			Suggestion: code.Suggestion(),
			Context:    ctx,
		}
	}

	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		return &StructuredError{
			Code:       ErrCircuitOpen,
			Message:    cbErr.Error(),
			Retryable:  true,
			Suggestion: ErrCircuitOpen.Suggestion(),
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &StructuredError{
			Code:       ErrTimeout,
			Message:    err.Error(),
			Retryable:  true,
			Suggestion: ErrTimeout.Suggestion(),
		}
	}

	return &StructuredError{Code: ErrUnknown, Message: err.Error()}
}
