package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Default retry configuration values
const (
	DefaultMaxRateLimitRetries     = 1
	DefaultMax5xxRetries           = 1
	DefaultMaxRetryAfter           = 10 * time.Second
	DefaultServerErrorRetryDelay   = 1 * time.Second
	DefaultCircuitBreakerThreshold = 5
	DefaultCircuitBreakerResetTime = 30 * time.Second
)

// RetryConfig holds configuration for retry behavior and circuit breaker.
type RetryConfig struct {
	// MaxRateLimitRetries bounds retries of 429 responses. A 429 is only
	// retried when the service sends Retry-After no longer than MaxRetryAfter,
	// since an exhausted token budget does not refill within a CLI run.
	MaxRateLimitRetries     int
	MaxRetryAfter           time.Duration
	Max5xxRetries           int
	ServerErrorRetryDelay   time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerResetTime time.Duration
}

// DefaultRetryConfig returns a RetryConfig populated from environment variables
// with fallback to default values.
//
// Environment variables:
//   - BARCODEAPI_MAX_RATE_LIMIT_RETRIES: max retries for 429 errors (default: 1)
//   - BARCODEAPI_MAX_RETRY_AFTER: longest Retry-After honored (default: "10s")
//   - BARCODEAPI_MAX_5XX_RETRIES: max retries for 5xx errors (default: 1)
//   - BARCODEAPI_SERVER_ERROR_DELAY: delay for server error retries (default: "1s")
//   - BARCODEAPI_CIRCUIT_BREAKER_THRESHOLD: failures before circuit opens (default: 5)
//   - BARCODEAPI_CIRCUIT_BREAKER_RESET_TIME: time before circuit resets (default: "30s")
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRateLimitRetries:     getEnvInt("BARCODEAPI_MAX_RATE_LIMIT_RETRIES", DefaultMaxRateLimitRetries),
		MaxRetryAfter:           getEnvDuration("BARCODEAPI_MAX_RETRY_AFTER", DefaultMaxRetryAfter),
		Max5xxRetries:           getEnvInt("BARCODEAPI_MAX_5XX_RETRIES", DefaultMax5xxRetries),
		ServerErrorRetryDelay:   getEnvDuration("BARCODEAPI_SERVER_ERROR_DELAY", DefaultServerErrorRetryDelay),
		CircuitBreakerThreshold: getEnvInt("BARCODEAPI_CIRCUIT_BREAKER_THRESHOLD", DefaultCircuitBreakerThreshold),
		CircuitBreakerResetTime: getEnvDuration("BARCODEAPI_CIRCUIT_BREAKER_RESET_TIME", DefaultCircuitBreakerResetTime),
	}
}

func getEnvInt(key string, defaultVal int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultVal
}

// CircuitBreakerError is returned without touching the network while the
// circuit is open.
type CircuitBreakerError struct {
	RetryIn time.Duration
}

func (e *CircuitBreakerError) Error() string {
	if e.RetryIn > 0 {
		return "circuit breaker open: too many server failures, retry in " + e.RetryIn.Round(time.Second).String()
	}
	return "circuit breaker open: too many server failures"
}

// RetryTransport retries rate-limited and failed idempotent requests and
// stops calling the service after repeated server failures. It only sees
// *APIError values, so the wrapped transport must have status checking on.
type RetryTransport struct {
	next    Transport
	cfg     RetryConfig
	breaker *circuitBreaker
	sleep   func(ctx context.Context, d time.Duration) error
}

var _ Transport = (*RetryTransport)(nil)

// WithRetry wraps next with retry and circuit breaker logic.
func WithRetry(next Transport, cfg RetryConfig) *RetryTransport {
	return &RetryTransport{
		next: next,
		cfg:  cfg,
		breaker: &circuitBreaker{
			threshold: cfg.CircuitBreakerThreshold,
			resetTime: cfg.CircuitBreakerResetTime,
		},
		sleep: sleepWithContext,
	}
}

// ResetCircuitBreaker clears the failure count and closes the circuit.
func (t *RetryTransport) ResetCircuitBreaker() {
	t.breaker.reset()
}

// RoundTrip implements Transport.
func (t *RetryTransport) RoundTrip(ctx context.Context, req *Request) ([]byte, error) {
	if open, retryIn := t.breaker.isOpen(); open {
		return nil, &CircuitBreakerError{RetryIn: retryIn}
	}

	idempotent := req.Method == http.MethodGet || req.Method == http.MethodHead ||
		req.Method == http.MethodDelete || req.Method == http.MethodOptions

	retries429, retries5xx := 0, 0
	for {
		body, err := t.next.RoundTrip(ctx, req)
		var apiErr *APIError
		if err == nil || !errors.As(err, &apiErr) {
			if err == nil {
				t.breaker.recordSuccess()
			}
			return body, err
		}

		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			if apiErr.RetryAfter <= 0 || apiErr.RetryAfter > t.cfg.MaxRetryAfter || retries429 >= t.cfg.MaxRateLimitRetries {
				return body, err
			}
			retries429++
			slog.Info("rate limited, retrying", "delay", apiErr.RetryAfter, "attempt", retries429)
			if sleepErr := t.sleep(ctx, apiErr.RetryAfter); sleepErr != nil {
				return nil, sleepErr
			}

		case apiErr.StatusCode >= 500:
			if t.breaker.recordFailure() {
				slog.Warn("circuit breaker opened", "threshold", t.breaker.threshold)
				return body, err
			}
			if !idempotent || retries5xx >= t.cfg.Max5xxRetries {
				return body, err
			}
			retries5xx++
			slog.Info("server error, retrying", "status", apiErr.StatusCode, "attempt", retries5xx)
			if sleepErr := t.sleep(ctx, t.cfg.ServerErrorRetryDelay); sleepErr != nil {
				return nil, sleepErr
			}

		default:
			return body, err
		}
	}
}

type circuitBreaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	open        bool
	halfOpen    bool
	threshold   int
	resetTime   time.Duration
	now         func() time.Time
}

func (cb *circuitBreaker) clock() time.Time {
	if cb.now != nil {
		return cb.now()
	}
	return time.Now()
}

// sleepWithContext waits for the duration or returns early on context cancellation.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryAfterDuration parses Retry-After header values (seconds or HTTP date).
func retryAfterDuration(h http.Header) (time.Duration, bool) {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.open = false
	cb.halfOpen = false
}

// recordFailure counts a server failure and reports whether the circuit just
// opened. A failed half-open probe re-opens it.
func (cb *circuitBreaker) recordFailure() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.clock()

	if cb.halfOpen {
		cb.halfOpen = false
		return true
	}

	threshold := cb.threshold
	if threshold <= 0 {
		threshold = DefaultCircuitBreakerThreshold
	}
	if cb.failures >= threshold && !cb.open {
		cb.open = true
		return true
	}
	return false
}

// isOpen reports whether requests must be rejected, and for how long. Once
// the reset time has passed the circuit goes half-open and lets probes through.
func (cb *circuitBreaker) isOpen() (bool, time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open || cb.halfOpen {
		return false, 0
	}

	resetTime := cb.resetTime
	if resetTime <= 0 {
		resetTime = DefaultCircuitBreakerResetTime
	}
	elapsed := cb.clock().Sub(cb.lastFailure)
	if elapsed >= resetTime {
		cb.halfOpen = true
		return false, 0
	}
	return true, resetTime - elapsed
}

func (cb *circuitBreaker) reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.open = false
	cb.halfOpen = false
	cb.lastFailure = time.Time{}
}
