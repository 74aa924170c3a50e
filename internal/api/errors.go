package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrNoTransport is returned by every Client operation when the client was
// built without a Transport.
var ErrNoTransport = errors.New("api: no transport configured")

// APIError represents an error status returned by the service. Only
// transports with status checking enabled produce it.
type APIError struct {
	StatusCode int
	Body       string
	RequestID  string
	// RetryAfter is the parsed Retry-After header, zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

func newAPIError(status int, body []byte, header http.Header) *APIError {
	e := &APIError{
		StatusCode: status,
		Body:       sanitizeErrorBody(string(body)),
		RequestID:  requestIDFromHeader(header),
	}
	if d, ok := retryAfterDuration(header); ok {
		e.RetryAfter = d
	}
	return e
}

// StatusCode returns the HTTP status carried by err, or 0 when err does not
// wrap an *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFoundError checks if the error indicates a resource was not found.
func IsNotFoundError(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsRateLimited reports whether err is a 429 from the service.
func IsRateLimited(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

// IsAuthError reports whether err is a 401 or 403 from the service.
func IsAuthError(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

func requestIDFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	return header.Get("X-Request-Id")
}

// sanitizeErrorBody extracts a safe error message from an error response.
// BarcodeAPI error payloads carry the message under "message" or "error";
// plain-text bodies are passed through when short.
func sanitizeErrorBody(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return "empty response body"
	}

	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &errResp); err != nil {
		if len(body) <= 200 && !strings.ContainsAny(body, "<>") {
			return body
		}
		return "API request failed (response body redacted)"
	}

	if errResp.Message != "" {
		return errResp.Message
	}
	if errResp.Error != "" {
		return errResp.Error
	}
	return "API request failed (response body redacted)"
}
