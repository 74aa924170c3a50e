package api

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/barcodeapi/barcodeapi-cli/internal/debug"
)

// Request is a fully assembled call handed to a Transport.
type Request struct {
	Method  string
	URL     string
	Headers Headers
	Body    []byte
}

// Transport performs the network exchange for a Client.
//
// Implementations return the raw response body. Whatever error they return is
// handed back to the Client's caller unchanged; cancellation and timeouts are
// the implementation's business.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) ([]byte, error)
}

// TransportFunc adapts an ordinary function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) ([]byte, error)

// RoundTrip calls f(ctx, req).
func (f TransportFunc) RoundTrip(ctx context.Context, req *Request) ([]byte, error) {
	return f(ctx, req)
}

// WithDebugLogging wraps next so that every exchange is logged at debug level
// when debug mode is enabled in the request context.
func WithDebugLogging(next Transport) Transport {
	return TransportFunc(func(ctx context.Context, req *Request) ([]byte, error) {
		if !debug.IsEnabled(ctx) {
			return next.RoundTrip(ctx, req)
		}
		start := time.Now()
		slog.Debug("request start", "method", req.Method, "url", req.URL, "headers", redactHeaders(req.Headers), "body_bytes", len(req.Body))
		body, err := next.RoundTrip(ctx, req)
		if err != nil {
			slog.Debug("request failed", "method", req.Method, "url", req.URL, "duration", time.Since(start), "error", err)
			return body, err
		}
		slog.Debug("request complete", "method", req.Method, "url", req.URL, "duration", time.Since(start), "response_bytes", len(body))
		return body, nil
	})
}

func redactHeaders(h Headers) map[string]string {
	out := h.Map()
	for k := range out {
		if strings.EqualFold(k, authorizationHeader) {
			out[k] = "[redacted]"
		}
	}
	return out
}
