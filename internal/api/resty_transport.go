package api

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// RestyTransport sends requests through a resty client. It follows the same
// contract as HTTPTransport, including the optional status check.
type RestyTransport struct {
	Client      *resty.Client
	CheckStatus bool
}

var _ Transport = (*RestyTransport)(nil)

// NewRestyTransport wraps rc, or a fresh resty client when rc is nil.
func NewRestyTransport(rc *resty.Client) *RestyTransport {
	if rc == nil {
		rc = resty.New().SetTimeout(DefaultTimeout)
	}
	return &RestyTransport{Client: rc}
}

// RoundTrip implements Transport.
func (t *RestyTransport) RoundTrip(ctx context.Context, req *Request) ([]byte, error) {
	r := t.Client.R().SetContext(ctx)
	for k, v := range req.Headers.All() {
		r.Header[k] = []string{v}
	}
	if len(req.Body) > 0 {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body := resp.Body()
	if t.CheckStatus && resp.StatusCode() >= 400 {
		return body, newAPIError(resp.StatusCode(), body, resp.Header())
	}
	return body, nil
}
