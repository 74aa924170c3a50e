package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// CreateShare stores a set of barcode requests under a share key.
//
// Each fragment must already be valid JSON; fragments are joined with commas
// and wrapped in brackets without any validation or escaping.
func (c *Client) CreateShare(ctx context.Context, fragments []string) ([]byte, error) {
	body := "[" + strings.Join(fragments, ",") + "]"
	return c.do(ctx, http.MethodPost, c.endpoint("/share/"), NewHeaders("Content-Type", "application/json"), []byte(body))
}

// GetShare retrieves a previously created share.
func (c *Client) GetShare(ctx context.Context, key string) ([]byte, error) {
	return c.get(ctx, "/share/", Query{{Key: "key", Value: key}})
}

// ShareRequests quotes request URIs such as "/api/qr/hello" as JSON strings
// suitable for CreateShare.
func ShareRequests(uris ...string) []string {
	out := make([]string, 0, len(uris))
	for _, u := range uris {
		b, err := json.Marshal(u)
		if err != nil {
			continue
		}
		out = append(out, string(b))
	}
	return out
}
