// Package api builds BarcodeAPI requests and hands them to a pluggable Transport.
package api

import (
	"context"
	"net/http"
	"strings"
)

const (
	// DefaultBaseURL is the public BarcodeAPI service root.
	DefaultBaseURL = "https://barcodeapi.org"
	// DefaultCodeType lets the service pick a barcode format for the data.
	DefaultCodeType = "auto"

	authorizationHeader = "Authorization"
	tokenPrefix         = "Token="
)

// Client builds BarcodeAPI requests and hands them to a Transport.
//
// The header set is owned by the client and applies to every request made
// after it changes. A Client holds no locks: do not change headers while a
// request is in flight on another goroutine.
type Client struct {
	baseURL   string
	headers   Headers
	transport Transport
}

// New creates a client for baseURL (DefaultBaseURL when empty). A non-empty
// token is applied with SetToken. The transport is fixed for the lifetime of
// the client; with a nil transport every operation returns ErrNoTransport.
func New(baseURL, token string, transport Transport) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   baseURL,
		transport: transport,
	}
	c.SetToken(token)
	return c
}

// BaseURL returns the service root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken sets the Authorization header to "Token=<token>". An empty token
// removes the header.
func (c *Client) SetToken(token string) {
	if token == "" {
		c.headers.Del(authorizationHeader)
		return
	}
	c.headers.Set(authorizationHeader, tokenPrefix+token)
}

// Token returns the configured token, or "" when none is set.
func (c *Client) Token() string {
	v, ok := c.headers.Get(authorizationHeader)
	if !ok {
		return ""
	}
	return strings.TrimPrefix(v, tokenPrefix)
}

// SetHeader sets a header sent with every request. Authorization is reserved
// for SetToken and is ignored here.
func (c *Client) SetHeader(key, value string) {
	if key == authorizationHeader {
		return
	}
	c.headers.Set(key, value)
}

// DelHeader removes a header set with SetHeader.
func (c *Client) DelHeader(key string) {
	if key == authorizationHeader {
		return
	}
	c.headers.Del(key)
}

// Headers returns a copy of the persistent header set.
func (c *Client) Headers() Headers {
	return c.headers.Clone()
}

// endpoint joins the base URL and a path that starts with "/".
func (c *Client) endpoint(path string) string {
	if path != "" && path[0] != '/' {
		path = "/" + path
	}
	return c.baseURL + path
}

// do merges extra over the client headers and performs one transport call.
// The transport's result and error are returned untouched.
func (c *Client) do(ctx context.Context, method, url string, extra Headers, body []byte) ([]byte, error) {
	if c.transport == nil {
		return nil, ErrNoTransport
	}
	req := &Request{
		Method:  method,
		URL:     url,
		Headers: c.headers.Merge(extra),
		Body:    body,
	}
	return c.transport.RoundTrip(ctx, req)
}

// postMultipart uploads payload as the single file part described by form.
func (c *Client) postMultipart(ctx context.Context, path string, form formFile, payload []byte) ([]byte, error) {
	contentType, body := form.encode(payload)
	return c.do(ctx, http.MethodPost, c.endpoint(path), NewHeaders("Content-Type", contentType), body)
}
