package cache

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
)

// cacheablePaths are the metadata endpoints whose answers change rarely,
// relative to the service root.
var cacheablePaths = []string{"/types/", "/type/", "/info/"}

// Transport serves repeated metadata GETs from a Store and forwards
// everything else to the wrapped transport untouched.
type Transport struct {
	next    api.Transport
	store   Store
	baseURL string
}

var _ api.Transport = (*Transport)(nil)

// NewTransport wraps next with store. Only requests under baseURL
// (api.DefaultBaseURL when empty) are considered for caching.
func NewTransport(next api.Transport, store Store, baseURL string) *Transport {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = api.DefaultBaseURL
	}
	return &Transport{next: next, store: store, baseURL: baseURL}
}

// RoundTrip implements api.Transport. Only successful responses are stored.
func (t *Transport) RoundTrip(ctx context.Context, req *api.Request) ([]byte, error) {
	if !t.cacheable(req) {
		return t.next.RoundTrip(ctx, req)
	}

	auth, _ := req.Headers.Get("Authorization")
	key := req.Method + " " + req.URL + " " + auth
	if body, ok := t.store.Get(ctx, key); ok {
		slog.Debug("cache hit", "url", req.URL)
		return body, nil
	}

	body, err := t.next.RoundTrip(ctx, req)
	if err != nil {
		return body, err
	}
	t.store.Put(ctx, key, body)
	return body, nil
}

// cacheable matches the request path against the metadata endpoints exactly,
// so a generate request such as /api/types/ never hits the cache.
func (t *Transport) cacheable(req *api.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	rest, ok := strings.CutPrefix(req.URL, t.baseURL)
	if !ok {
		return false
	}
	path, _, _ := strings.Cut(rest, "?")
	path, _, _ = strings.Cut(path, "#")
	return slices.Contains(cacheablePaths, path)
}
