package api

import (
	"context"
	"net/http"
)

// GetSession returns details of the current session.
func (c *Client) GetSession(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/session/", nil)
}

// DeleteSession ends the current session.
func (c *Client) DeleteSession(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, c.endpoint("/session/"), Headers{}, nil)
}
