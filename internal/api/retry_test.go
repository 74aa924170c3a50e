package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// scripted answers each call with the next error in errs; nil means success.
type scripted struct {
	errs  []error
	calls int
}

func (s *scripted) RoundTrip(_ context.Context, _ *Request) ([]byte, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return []byte("error"), s.errs[i]
	}
	return []byte("ok"), nil
}

func testRetryTransport(next Transport, cfg RetryConfig) (*RetryTransport, *[]time.Duration) {
	rt := WithRetry(next, cfg)
	var slept []time.Duration
	rt.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return rt, &slept
}

func testRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRateLimitRetries:     1,
		MaxRetryAfter:           5 * time.Second,
		Max5xxRetries:           1,
		ServerErrorRetryDelay:   time.Second,
		CircuitBreakerThreshold: 3,
		CircuitBreakerResetTime: time.Minute,
	}
}

func TestRetryTransport_RetriesIdempotentServerError(t *testing.T) {
	next := &scripted{errs: []error{&APIError{StatusCode: 503}}}
	rt, slept := testRetryTransport(next, testRetryConfig())

	body, err := rt.RoundTrip(context.Background(), &Request{Method: http.MethodGet})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
	if next.calls != 2 {
		t.Errorf("calls = %d, want 2", next.calls)
	}
	if len(*slept) != 1 || (*slept)[0] != time.Second {
		t.Errorf("slept = %v, want [1s]", *slept)
	}
}

func TestRetryTransport_DoesNotRetryPost(t *testing.T) {
	next := &scripted{errs: []error{&APIError{StatusCode: 500}}}
	rt, _ := testRetryTransport(next, testRetryConfig())

	body, err := rt.RoundTrip(context.Background(), &Request{Method: http.MethodPost})
	if StatusCode(err) != 500 {
		t.Fatalf("err = %v, want status 500", err)
	}
	if string(body) != "error" {
		t.Errorf("body = %q, want the transport's body", body)
	}
	if next.calls != 1 {
		t.Errorf("calls = %d, want 1", next.calls)
	}
}

func TestRetryTransport_GivesUpAfterMax5xxRetries(t *testing.T) {
	next := &scripted{errs: []error{&APIError{StatusCode: 502}, &APIError{StatusCode: 502}, &APIError{StatusCode: 502}}}
	rt, _ := testRetryTransport(next, testRetryConfig())

	_, err := rt.RoundTrip(context.Background(), &Request{Method: http.MethodGet})
	if StatusCode(err) != 502 {
		t.Fatalf("err = %v, want status 502", err)
	}
	if next.calls != 2 {
		t.Errorf("calls = %d, want 2", next.calls)
	}
}

func TestRetryTransport_RateLimitHonorsRetryAfter(t *testing.T) {
	next := &scripted{errs: []error{&APIError{StatusCode: 429, RetryAfter: 2 * time.Second}}}
	rt, slept := testRetryTransport(next, testRetryConfig())

	if _, err := rt.RoundTrip(context.Background(), &Request{Method: http.MethodPost}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*slept) != 1 || (*slept)[0] != 2*time.Second {
		t.Errorf("slept = %v, want [2s]", *slept)
	}
}

func TestRetryTransport_RateLimitNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
	}{
		{"no retry-after", &APIError{StatusCode: 429}},
		{"retry-after too long", &APIError{StatusCode: 429, RetryAfter: time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &scripted{errs: []error{tt.err}}
			rt, slept := testRetryTransport(next, testRetryConfig())

			_, err := rt.RoundTrip(context.Background(), &Request{Method: http.MethodGet})
			if !IsRateLimited(err) {
				t.Fatalf("err = %v, want rate limited", err)
			}
			if next.calls != 1 || len(*slept) != 0 {
				t.Errorf("calls = %d slept = %v, want one call and no sleep", next.calls, *slept)
			}
		})
	}
}

func TestRetryTransport_PassesOtherErrorsThrough(t *testing.T) {
	netErr := errors.New("connection refused")
	tests := []error{netErr, &APIError{StatusCode: 404}}
	for _, want := range tests {
		next := &scripted{errs: []error{want}}
		rt, _ := testRetryTransport(next, testRetryConfig())

		_, err := rt.RoundTrip(context.Background(), &Request{Method: http.MethodGet})
		if !errors.Is(err, want) {
			t.Errorf("err = %v, want %v", err, want)
		}
		if next.calls != 1 {
			t.Errorf("calls = %d, want 1", next.calls)
		}
	}
}

func TestRetryTransport_SleepCancelled(t *testing.T) {
	next := &scripted{errs: []error{&APIError{StatusCode: 503}}}
	rt := WithRetry(next, testRetryConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rt.RoundTrip(ctx, &Request{Method: http.MethodGet})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if next.calls != 1 {
		t.Errorf("calls = %d, want 1", next.calls)
	}
}

func TestRetryTransport_CircuitOpensAndRecovers(t *testing.T) {
	cfg := testRetryConfig()
	cfg.Max5xxRetries = 0
	failing := &APIError{StatusCode: 500}
	next := &scripted{errs: []error{failing, failing, failing}}
	rt, _ := testRetryTransport(next, cfg)
	now := time.Now()
	rt.breaker.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := rt.RoundTrip(context.Background(), &Request{Method: http.MethodGet}); StatusCode(err) != 500 {
			t.Fatalf("call %d: err = %v, want status 500", i, err)
		}
	}

	_, err := rt.RoundTrip(context.Background(), &Request{Method: http.MethodGet})
	var cbErr *CircuitBreakerError
	if !errors.As(err, &cbErr) {
		t.Fatalf("err = %v, want *CircuitBreakerError", err)
	}
	if cbErr.RetryIn != time.Minute {
		t.Errorf("RetryIn = %v, want 1m", cbErr.RetryIn)
	}
	if next.calls != 3 {
		t.Errorf("calls = %d, want 3 (open circuit must not reach the transport)", next.calls)
	}

	now = now.Add(time.Minute)
	if _, err := rt.RoundTrip(context.Background(), &Request{Method: http.MethodGet}); err != nil {
		t.Fatalf("probe: unexpected error: %v", err)
	}
	if open, _ := rt.breaker.isOpen(); open {
		t.Error("circuit should close after a successful probe")
	}
}

func TestRetryTransport_ResetCircuitBreaker(t *testing.T) {
	rt := WithRetry(&scripted{}, testRetryConfig())
	for i := 0; i < 3; i++ {
		rt.breaker.recordFailure()
	}
	if open, _ := rt.breaker.isOpen(); !open {
		t.Fatal("circuit should be open")
	}
	rt.ResetCircuitBreaker()
	if open, _ := rt.breaker.isOpen(); open {
		t.Error("circuit should be closed after reset")
	}
}

func TestCircuitBreaker_FailureDuringHalfOpenReopens(t *testing.T) {
	now := time.Now()
	cb := &circuitBreaker{threshold: 1, resetTime: time.Second, now: func() time.Time { return now }}

	if !cb.recordFailure() {
		t.Fatal("first failure should open the circuit")
	}
	now = now.Add(time.Second)
	if open, _ := cb.isOpen(); open {
		t.Fatal("circuit should be half-open after the reset time")
	}
	if !cb.recordFailure() {
		t.Error("failed probe should re-open the circuit")
	}
	if open, _ := cb.isOpen(); !open {
		t.Error("circuit should be open again")
	}
}

func TestCircuitBreaker_DefaultThresholdWhenZero(t *testing.T) {
	cb := &circuitBreaker{}
	for i := 1; i < DefaultCircuitBreakerThreshold; i++ {
		if cb.recordFailure() {
			t.Fatalf("circuit opened after %d failures", i)
		}
	}
	if !cb.recordFailure() {
		t.Error("circuit should open at the default threshold")
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxRateLimitRetries != DefaultMaxRateLimitRetries {
		t.Errorf("MaxRateLimitRetries = %d", cfg.MaxRateLimitRetries)
	}
	if cfg.CircuitBreakerResetTime != DefaultCircuitBreakerResetTime {
		t.Errorf("CircuitBreakerResetTime = %v", cfg.CircuitBreakerResetTime)
	}
}

func TestDefaultRetryConfig_WithEnvVars(t *testing.T) {
	t.Setenv("BARCODEAPI_MAX_5XX_RETRIES", "3")
	t.Setenv("BARCODEAPI_SERVER_ERROR_DELAY", "250ms")
	t.Setenv("BARCODEAPI_MAX_RETRY_AFTER", "not-a-duration")
	t.Setenv("BARCODEAPI_CIRCUIT_BREAKER_THRESHOLD", "-2")

	cfg := DefaultRetryConfig()
	if cfg.Max5xxRetries != 3 {
		t.Errorf("Max5xxRetries = %d, want 3", cfg.Max5xxRetries)
	}
	if cfg.ServerErrorRetryDelay != 250*time.Millisecond {
		t.Errorf("ServerErrorRetryDelay = %v, want 250ms", cfg.ServerErrorRetryDelay)
	}
	if cfg.MaxRetryAfter != DefaultMaxRetryAfter {
		t.Errorf("MaxRetryAfter = %v, want default", cfg.MaxRetryAfter)
	}
	if cfg.CircuitBreakerThreshold != DefaultCircuitBreakerThreshold {
		t.Errorf("CircuitBreakerThreshold = %d, want default", cfg.CircuitBreakerThreshold)
	}
}

func TestRetryAfterDuration(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{"seconds", "5", 5 * time.Second, true},
		{"negative seconds", "-3", 0, true},
		{"past date", time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat), 0, true},
		{"missing", "", 0, false},
		{"garbage", "soon", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}
			d, ok := retryAfterDuration(h)
			if ok != tt.wantOK || d != tt.want {
				t.Errorf("retryAfterDuration(%q) = %v, %v; want %v, %v", tt.value, d, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRetryAfterDurationHTTPDate(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", time.Now().Add(2*time.Second).UTC().Format(http.TimeFormat))

	d, ok := retryAfterDuration(header)
	if !ok || d <= 0 || d > 3*time.Second {
		t.Fatalf("got %v, %v; want a duration within (0,3s]", d, ok)
	}
}

func TestNewAPIError_RetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "7")
	err := newAPIError(429, []byte(`{"message":"slow"}`), h)
	if err.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", err.RetryAfter)
	}
	if newAPIError(500, nil, nil).RetryAfter != 0 {
		t.Error("RetryAfter should be zero without a header")
	}
}
