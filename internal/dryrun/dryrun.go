// Package dryrun previews requests instead of sending them.
package dryrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
	"github.com/barcodeapi/barcodeapi-cli/internal/outfmt"
)

type contextKey string

const dryRunKey contextKey = "dry_run_enabled"

// maxBodyPreview caps how much of a textual request body is shown.
const maxBodyPreview = 512

// ErrDryRun is returned by Transport after the preview is written. Commands
// treat it as success.
var ErrDryRun = errors.New("dry run: request not sent")

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, dryRunKey, enabled)
}

// IsEnabled returns true if dry-run mode is enabled.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey).(bool); ok {
		return v
	}
	return false
}

// Header is one request header in send order.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Preview describes a request that would have been sent.
type Preview struct {
	Method    string   `json:"method"`
	URL       string   `json:"url"`
	Headers   []Header `json:"headers,omitempty"`
	BodyBytes int      `json:"body_bytes"`
	Body      string   `json:"body,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// NewPreview builds a preview of req. The token is redacted and binary
// bodies are summarized by size only.
func NewPreview(req *api.Request) *Preview {
	p := &Preview{
		Method:    req.Method,
		URL:       req.URL,
		BodyBytes: len(req.Body),
	}
	for name, value := range req.Headers.All() {
		if strings.EqualFold(name, "Authorization") {
			value = "[redacted]"
		}
		p.Headers = append(p.Headers, Header{Name: name, Value: value})
	}
	if len(req.Body) > 0 && len(req.Body) <= maxBodyPreview && utf8.Valid(req.Body) && !strings.HasPrefix(contentType(req), "multipart/") {
		p.Body = string(req.Body)
	}
	if req.Method == http.MethodDelete {
		p.Warnings = append(p.Warnings, "This request removes server-side state")
	}
	return p
}

func contentType(req *api.Request) string {
	v, _ := req.Headers.Get("Content-Type")
	return v
}

// Write outputs the preview to the writer
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\n[DRY-RUN] Would %s %s\n", p.Method, p.URL)
	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")

	for _, h := range p.Headers {
		_, _ = fmt.Fprintf(w, "  %s: %s\n", h.Name, h.Value)
	}
	if p.BodyBytes > 0 {
		_, _ = fmt.Fprintf(w, "  body: %d bytes\n", p.BodyBytes)
		if p.Body != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", p.Body)
		}
	}
	if len(p.Headers) > 0 || p.BodyBytes > 0 {
		_, _ = fmt.Fprintln(w)
	}

	if len(p.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "Warnings:")
		for _, warning := range p.Warnings {
			_, _ = fmt.Fprintf(w, "  ! %s\n", warning)
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")
	_, _ = fmt.Fprintln(w, "No request sent (dry-run mode)")
}

// Transport writes a preview of every request to Out and returns ErrDryRun.
// In JSON output mode the preview is written as one JSON object per request.
type Transport struct {
	Out io.Writer

	mu sync.Mutex
}

var _ api.Transport = (*Transport)(nil)

// RoundTrip implements api.Transport.
func (t *Transport) RoundTrip(ctx context.Context, req *api.Request) ([]byte, error) {
	p := NewPreview(req)
	t.mu.Lock()
	defer t.mu.Unlock()
	if outfmt.IsJSON(ctx) {
		if err := outfmt.WriteJSONMaybeCompact(t.Out, map[string]any{"dry_run": p}, outfmt.IsCompact(ctx)); err != nil {
			return nil, err
		}
		return nil, ErrDryRun
	}
	p.Write(t.Out)
	return nil, ErrDryRun
}
