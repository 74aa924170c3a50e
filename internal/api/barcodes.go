package api

import (
	"context"
	"net/http"
)

// GenerateOptions customizes Generate. The zero value renders with the
// DefaultCodeType and no extra parameters.
type GenerateOptions struct {
	// CodeType is the barcode format, e.g. "qr" or "128".
	CodeType string
	// Params are sent as query parameters in order (size, colors, text...).
	Params Query
	// Headers override the client headers for this call only.
	Headers Headers
}

// Generate renders data as a barcode and returns the image bytes.
func (c *Client) Generate(ctx context.Context, data string, opts *GenerateOptions) ([]byte, error) {
	if opts == nil {
		opts = &GenerateOptions{}
	}
	return c.do(ctx, http.MethodGet, c.GenerateURL(data, opts.CodeType, opts.Params), opts.Headers, nil)
}

// GenerateURL returns the URL Generate requests for the given input.
func (c *Client) GenerateURL(data, codeType string, params Query) string {
	if codeType == "" {
		codeType = DefaultCodeType
	}
	return c.endpoint("/api/"+codeType+"/"+Escape(data)) + params.Encode()
}

// Decode uploads an image and returns the service's decode result.
func (c *Client) Decode(ctx context.Context, image []byte) ([]byte, error) {
	return c.postMultipart(ctx, "/decode/", decodeForm, image)
}

// BulkGenerate uploads a CSV describing many barcodes. The service answers
// with a ZIP archive.
func (c *Client) BulkGenerate(ctx context.Context, csv []byte) ([]byte, error) {
	return c.postMultipart(ctx, "/bulk/", bulkForm, csv)
}
