// Package apitest provides an in-memory Transport for exercising api.Client
// without a network.
package apitest

import (
	"context"
	"sync"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
)

// Recorder captures every request and answers with Body and Err.
type Recorder struct {
	Body []byte
	Err  error

	mu       sync.Mutex
	requests []api.Request
}

var _ api.Transport = (*Recorder)(nil)

// NewRecorder returns a Recorder that replies with body.
func NewRecorder(body string) *Recorder {
	return &Recorder{Body: []byte(body)}
}

// RoundTrip records req and returns the canned response.
func (r *Recorder) RoundTrip(_ context.Context, req *api.Request) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	cp.Headers = req.Headers.Clone()
	cp.Body = append([]byte(nil), req.Body...)
	r.requests = append(r.requests, cp)
	return r.Body, r.Err
}

// Requests returns the recorded requests in call order.
func (r *Recorder) Requests() []api.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.Request, len(r.requests))
	copy(out, r.requests)
	return out
}

// Last returns the most recent request. ok is false when nothing was sent.
func (r *Recorder) Last() (req api.Request, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return api.Request{}, false
	}
	return r.requests[len(r.requests)-1], true
}
