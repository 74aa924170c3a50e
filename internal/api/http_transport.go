package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole request, body included, when no other
// timeout is configured.
const DefaultTimeout = 30 * time.Second

// HTTPTransport sends requests with net/http.
//
// By default the response body is returned whatever the status code. Set
// CheckStatus to turn 4xx/5xx responses into *APIError.
type HTTPTransport struct {
	HTTP        *http.Client
	CheckStatus bool
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport wraps hc. A nil hc gets a client with DefaultTimeout and a
// transport that refuses anything older than TLS 1.2.
func NewHTTPTransport(hc *http.Client) *HTTPTransport {
	if hc == nil {
		hc = newHTTPClient(DefaultTimeout)
	}
	return &HTTPTransport{HTTP: hc}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		baseTransport = &http.Transport{}
	}
	transport := baseTransport.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12
	transport.TLSClientConfig.InsecureSkipVerify = false

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// RoundTrip implements Transport.
func (t *HTTPTransport) RoundTrip(ctx context.Context, req *Request) ([]byte, error) {
	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Headers.applyTo(httpReq.Header)

	resp, err := t.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if t.CheckStatus && resp.StatusCode >= 400 {
		return respBody, newAPIError(resp.StatusCode, respBody, resp.Header)
	}
	return respBody, nil
}
