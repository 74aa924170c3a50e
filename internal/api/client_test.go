package api_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
	"github.com/barcodeapi/barcodeapi-cli/internal/api/apitest"
)

func newRecordingClient(t *testing.T, token string) (*api.Client, *apitest.Recorder) {
	t.Helper()
	rec := apitest.NewRecorder("ok")
	return api.New("https://example.com", token, rec), rec
}

func lastRequest(t *testing.T, rec *apitest.Recorder) api.Request {
	t.Helper()
	req, ok := rec.Last()
	require.True(t, ok, "expected a request to be recorded")
	return req
}

func TestNew_Defaults(t *testing.T) {
	c := api.New("", "", nil)
	assert.Equal(t, api.DefaultBaseURL, c.BaseURL())
	assert.Equal(t, "", c.Token())
	assert.Equal(t, 0, c.Headers().Len())
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	rec := apitest.NewRecorder("")
	c := api.New("https://example.com//", "", rec)
	assert.Equal(t, "https://example.com", c.BaseURL())

	_, err := c.GetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/info/", lastRequest(t, rec).URL)
}

func TestNew_TokenApplied(t *testing.T) {
	c, _ := newRecordingClient(t, "abc")
	v, ok := c.Headers().Get("Authorization")
	require.True(t, ok)
	assert.Equal(t, "Token=abc", v)
	assert.Equal(t, "abc", c.Token())
}

func TestSetToken(t *testing.T) {
	c, rec := newRecordingClient(t, "")

	c.SetToken("abc")
	v, _ := c.Headers().Get("Authorization")
	assert.Equal(t, "Token=abc", v)

	c.SetToken("xyz")
	v, _ = c.Headers().Get("Authorization")
	assert.Equal(t, "Token=xyz", v)
	assert.Equal(t, 1, c.Headers().Len(), "replacing the token must not leave a stale entry")

	c.SetToken("")
	assert.False(t, c.Headers().Has("Authorization"))

	c.SetToken("")
	assert.False(t, c.Headers().Has("Authorization"))

	_, err := c.GetTypes(context.Background())
	require.NoError(t, err)
	assert.False(t, lastRequest(t, rec).Headers.Has("Authorization"))
}

func TestSetToken_NotEscaped(t *testing.T) {
	c, _ := newRecordingClient(t, "a b/c")
	v, _ := c.Headers().Get("Authorization")
	assert.Equal(t, "Token=a b/c", v)
}

func TestSetHeader_AuthorizationReserved(t *testing.T) {
	c, _ := newRecordingClient(t, "")
	c.SetHeader("Authorization", "Bearer nope")
	c.SetHeader("Accept", "image/png")

	h := c.Headers()
	assert.False(t, h.Has("Authorization"))
	v, _ := h.Get("Accept")
	assert.Equal(t, "image/png", v)

	c.SetToken("abc")
	c.DelHeader("Authorization")
	assert.Equal(t, "abc", c.Token())

	c.DelHeader("Accept")
	assert.False(t, c.Headers().Has("Accept"))
}

func TestHeaders_ReturnsCopy(t *testing.T) {
	c, _ := newRecordingClient(t, "abc")
	h := c.Headers()
	h.Set("X-Mutated", "1")
	assert.False(t, c.Headers().Has("X-Mutated"))
}

func TestGenerate_DefaultURL(t *testing.T) {
	c, rec := newRecordingClient(t, "")

	body, err := c.Generate(context.Background(), "abc 123", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	req := lastRequest(t, rec)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "https://example.com/api/auto/abc%20123", req.URL)
	assert.Empty(t, req.Body)
	assert.Equal(t, 0, req.Headers.Len())
}

func TestGenerate_CodeTypeParamsAndHeaders(t *testing.T) {
	c, rec := newRecordingClient(t, "tok")
	c.SetHeader("Accept", "image/png")

	_, err := c.Generate(context.Background(), "héllo/1", &api.GenerateOptions{
		CodeType: "qr",
		Params:   api.Query{{Key: "fg", Value: "FF0000"}, {Key: "text", Value: "a b"}},
		Headers:  api.NewHeaders("Accept", "image/svg+xml", "X-Extra", "1"),
	})
	require.NoError(t, err)

	req := lastRequest(t, rec)
	assert.Equal(t, "https://example.com/api/qr/h%C3%A9llo%2F1?fg=FF0000&text=a%20b", req.URL)
	assert.Equal(t, []string{"Authorization", "Accept", "X-Extra"}, req.Headers.Keys())
	accept, _ := req.Headers.Get("Accept")
	assert.Equal(t, "image/svg+xml", accept)

	persistent, _ := c.Headers().Get("Accept")
	assert.Equal(t, "image/png", persistent, "per-call headers must not leak into the client")
}

func TestGenerate_EmptyParamsNoQuestionMark(t *testing.T) {
	c, rec := newRecordingClient(t, "")
	_, err := c.Generate(context.Background(), "x", &api.GenerateOptions{CodeType: "128", Params: api.Query{}})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api/128/x", lastRequest(t, rec).URL)
}

func TestGenerateURL(t *testing.T) {
	c := api.New("https://example.com", "", nil)
	assert.Equal(t, "https://example.com/api/auto/a%26b", c.GenerateURL("a&b", "", nil))
}

func TestDecode(t *testing.T) {
	c, rec := newRecordingClient(t, "tok")

	_, err := c.Decode(context.Background(), []byte("123"))
	require.NoError(t, err)

	req := lastRequest(t, rec)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://example.com/decode/", req.URL)

	ct, _ := req.Headers.Get("Content-Type")
	assert.Contains(t, ct, "multipart/form-data")
	assert.Contains(t, ct, "boundary=----BarcodeAPIBoundary")

	body := string(req.Body)
	assert.True(t, strings.HasPrefix(body, "------BarcodeAPIBoundary\r\n"))
	assert.Contains(t, body, "\r\n\r\n123\r\n------BarcodeAPIBoundary--\r\n")
	assert.Contains(t, body, `name="image"; filename="image.png"`)

	auth, _ := req.Headers.Get("Authorization")
	assert.Equal(t, "Token=tok", auth)
	assert.False(t, c.Headers().Has("Content-Type"))
}

func TestBulkGenerate(t *testing.T) {
	c, rec := newRecordingClient(t, "")

	_, err := c.BulkGenerate(context.Background(), []byte("qr,one\n128,two\n"))
	require.NoError(t, err)

	req := lastRequest(t, rec)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://example.com/bulk/", req.URL)
	assert.Contains(t, string(req.Body), `name="csvFile"; filename="bulk.csv"`)
	assert.Contains(t, string(req.Body), "Content-Type: text/csv\r\n\r\nqr,one\n128,two\n\r\n")
}

func TestReadOnlyEndpoints(t *testing.T) {
	tests := []struct {
		name   string
		call   func(*api.Client) ([]byte, error)
		method string
		url    string
	}{
		{"info", func(c *api.Client) ([]byte, error) { return c.GetInfo(context.Background()) }, http.MethodGet, "https://example.com/info/"},
		{"types", func(c *api.Client) ([]byte, error) { return c.GetTypes(context.Background()) }, http.MethodGet, "https://example.com/types/"},
		{"type", func(c *api.Client) ([]byte, error) { return c.GetType(context.Background(), "Code 128") }, http.MethodGet, "https://example.com/type/?type=Code%20128"},
		{"limiter", func(c *api.Client) ([]byte, error) { return c.GetLimiter(context.Background()) }, http.MethodGet, "https://example.com/limiter/"},
		{"session", func(c *api.Client) ([]byte, error) { return c.GetSession(context.Background()) }, http.MethodGet, "https://example.com/session/"},
		{"delete session", func(c *api.Client) ([]byte, error) { return c.DeleteSession(context.Background()) }, http.MethodDelete, "https://example.com/session/"},
		{"share", func(c *api.Client) ([]byte, error) { return c.GetShare(context.Background(), "k/1") }, http.MethodGet, "https://example.com/share/?key=k%2F1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newRecordingClient(t, "abc")
			body, err := tt.call(c)
			require.NoError(t, err)
			assert.Equal(t, "ok", string(body))

			req := lastRequest(t, rec)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.url, req.URL)
			assert.Empty(t, req.Body)
			assert.Equal(t, []string{"Authorization"}, req.Headers.Keys())
		})
	}
}

func TestCreateShare(t *testing.T) {
	c, rec := newRecordingClient(t, "")

	_, err := c.CreateShare(context.Background(), []string{`{"a":1}`, `{"b":2}`})
	require.NoError(t, err)

	req := lastRequest(t, rec)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://example.com/share/", req.URL)
	assert.Equal(t, `[{"a":1},{"b":2}]`, string(req.Body))
	ct, _ := req.Headers.Get("Content-Type")
	assert.Equal(t, "application/json", ct)
}

func TestCreateShare_Empty(t *testing.T) {
	c, rec := newRecordingClient(t, "")
	_, err := c.CreateShare(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(lastRequest(t, rec).Body))
}

func TestShareRequests(t *testing.T) {
	got := api.ShareRequests("/api/qr/hello", `/api/128/"q"`)
	assert.Equal(t, []string{`"/api/qr/hello"`, `"/api/128/\"q\""`}, got)
}

func TestTransportErrorPassedThrough(t *testing.T) {
	sentinel := errors.New("link down")
	rec := apitest.NewRecorder("partial")
	rec.Err = sentinel
	c := api.New("https://example.com", "", rec)

	body, err := c.GetInfo(context.Background())
	assert.True(t, err == sentinel, "transport error must be returned unwrapped, got %v", err)
	assert.Equal(t, "partial", string(body))
}

func TestNoTransport(t *testing.T) {
	c := api.New("https://example.com", "", nil)
	_, err := c.Generate(context.Background(), "x", nil)
	assert.ErrorIs(t, err, api.ErrNoTransport)
	_, err = c.DeleteSession(context.Background())
	assert.ErrorIs(t, err, api.ErrNoTransport)
}

func TestTransportFunc(t *testing.T) {
	var gotCtx context.Context
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")

	c := api.New("https://example.com", "", api.TransportFunc(func(ctx context.Context, req *api.Request) ([]byte, error) {
		gotCtx = ctx
		return []byte(req.Method + " " + req.URL), nil
	}))

	body, err := c.GetLimiter(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GET https://example.com/limiter/", string(body))
	assert.Equal(t, "v", gotCtx.Value(ctxKey{}))
}

func TestOneTransportCallPerOperation(t *testing.T) {
	c, rec := newRecordingClient(t, "")
	ctx := context.Background()
	_, _ = c.GetInfo(ctx)
	_, _ = c.Decode(ctx, []byte("img"))
	_, _ = c.CreateShare(ctx, []string{`"/api/qr/x"`})
	assert.Len(t, rec.Requests(), 3)
}
