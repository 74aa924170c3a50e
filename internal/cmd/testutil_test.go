package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/99designs/keyring"

	"github.com/barcodeapi/barcodeapi-cli/internal/config"
)

// captureStdout executes a function and captures its stdout output.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// captureStderr executes a function and captures its stderr output.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	_ = w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// run executes the CLI and returns stdout, stderr and the error.
func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	stderr = captureStderr(t, func() {
		stdout = captureStdout(t, func() {
			err = Execute(context.Background(), args)
		})
	})
	return stdout, stderr, err
}

// recordedRequest is what the test server saw.
type recordedRequest struct {
	Method      string
	RequestURI  string
	Header      http.Header
	Body        []byte
	ContentType string
}

// testServer routes "METHOD PATH" to handlers and records every request.
type testServer struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []recordedRequest
}

// setupTestEnv starts a server and points the CLI at it with a test token.
func setupTestEnv(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{routes: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	t.Setenv("BARCODEAPI_BASE_URL", s.URL)
	t.Setenv("BARCODEAPI_TOKEN", "test-token")
	return s
}

// On registers a handler for an exact method and path.
func (s *testServer) On(method, path string, h http.HandlerFunc) *testServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+path] = h
	return s
}

func (s *testServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{
		Method:      r.Method,
		RequestURI:  r.RequestURI,
		Header:      r.Header.Clone(),
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
	})
	h, ok := s.routes[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

// Requests returns a copy of the recorded requests.
func (s *testServer) Requests() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedRequest(nil), s.requests...)
}

func jsonResponse(statusCode int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(body))
	}
}

func rawResponse(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}
}

// useSharedKeyring makes every keyring open in this test see the same store.
func useSharedKeyring(t *testing.T) keyring.Keyring {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	restore := config.SetOpenKeyring(func(keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	})
	t.Cleanup(restore)
	return ring
}
