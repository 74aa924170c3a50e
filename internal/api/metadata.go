package api

import (
	"context"
	"net/http"
)

// GetInfo returns server information.
func (c *Client) GetInfo(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/info/", nil)
}

// GetTypes returns every supported barcode type.
func (c *Client) GetTypes(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/types/", nil)
}

// GetType returns details for a single barcode type.
func (c *Client) GetType(ctx context.Context, name string) ([]byte, error) {
	return c.get(ctx, "/type/", Query{{Key: "type", Value: name}})
}

// GetLimiter returns the rate limiter state for the caller.
func (c *Client) GetLimiter(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/limiter/", nil)
}

func (c *Client) get(ctx context.Context, path string, q Query) ([]byte, error) {
	return c.do(ctx, http.MethodGet, c.endpoint(path)+q.Encode(), Headers{}, nil)
}
