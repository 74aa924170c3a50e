package dryrun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
	"github.com/barcodeapi/barcodeapi-cli/internal/outfmt"
)

func TestWithDryRun(t *testing.T) {
	if !IsEnabled(WithDryRun(context.Background(), true)) {
		t.Error("IsEnabled should return true when dry-run is enabled")
	}
	if IsEnabled(context.Background()) {
		t.Error("IsEnabled should return false by default")
	}
	if IsEnabled(WithDryRun(context.Background(), false)) {
		t.Error("IsEnabled should return false when dry-run is explicitly disabled")
	}
}

func TestNewPreview_RedactsTokenAndKeepsOrder(t *testing.T) {
	req := &api.Request{
		Method:  http.MethodPost,
		URL:     "https://barcodeapi.org/share/",
		Headers: api.NewHeaders("Authorization", "Token=secret", "Content-Type", "application/json"),
		Body:    []byte(`["/api/qr/a"]`),
	}

	p := NewPreview(req)
	if len(p.Headers) != 2 || p.Headers[0].Name != "Authorization" || p.Headers[1].Name != "Content-Type" {
		t.Fatalf("Headers = %+v", p.Headers)
	}
	if p.Headers[0].Value != "[redacted]" {
		t.Errorf("Authorization = %q, want redacted", p.Headers[0].Value)
	}
	if p.Body != `["/api/qr/a"]` || p.BodyBytes != 13 {
		t.Errorf("Body = %q (%d bytes)", p.Body, p.BodyBytes)
	}
}

func TestNewPreview_MultipartBodySummarized(t *testing.T) {
	req := &api.Request{
		Method:  http.MethodPost,
		URL:     "https://barcodeapi.org/decode/",
		Headers: api.NewHeaders("Content-Type", "multipart/form-data; boundary=x"),
		Body:    []byte("--x\r\nbinary\r\n--x--\r\n"),
	}
	p := NewPreview(req)
	if p.Body != "" {
		t.Errorf("multipart body should not be shown, got %q", p.Body)
	}
	if p.BodyBytes != len(req.Body) {
		t.Errorf("BodyBytes = %d", p.BodyBytes)
	}
}

func TestNewPreview_DeleteWarns(t *testing.T) {
	p := NewPreview(&api.Request{Method: http.MethodDelete, URL: "https://barcodeapi.org/session/"})
	if len(p.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want one warning", p.Warnings)
	}
}

func TestPreview_Write(t *testing.T) {
	p := &Preview{
		Method:    http.MethodGet,
		URL:       "https://barcodeapi.org/api/qr/abc",
		Headers:   []Header{{Name: "Authorization", Value: "[redacted]"}},
		BodyBytes: 0,
		Warnings:  []string{"careful"},
	}

	var buf bytes.Buffer
	p.Write(&buf)
	output := buf.String()

	for _, want := range []string{
		"[DRY-RUN] Would GET https://barcodeapi.org/api/qr/abc",
		"Authorization: [redacted]",
		"Warnings:",
		"! careful",
		"No request sent (dry-run mode)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "body:") {
		t.Error("empty body should not be listed")
	}
}

func TestTransport_Text(t *testing.T) {
	var buf bytes.Buffer
	tr := &Transport{Out: &buf}

	body, err := tr.RoundTrip(context.Background(), &api.Request{Method: http.MethodGet, URL: "https://barcodeapi.org/info/"})
	if !errors.Is(err, ErrDryRun) {
		t.Fatalf("err = %v, want ErrDryRun", err)
	}
	if body != nil {
		t.Errorf("body = %q, want nil", body)
	}
	if !strings.Contains(buf.String(), "Would GET https://barcodeapi.org/info/") {
		t.Errorf("unexpected preview:\n%s", buf.String())
	}
}

func TestTransport_JSON(t *testing.T) {
	var buf bytes.Buffer
	tr := &Transport{Out: &buf}
	ctx := outfmt.WithMode(context.Background(), outfmt.JSON)

	_, err := tr.RoundTrip(ctx, &api.Request{Method: http.MethodGet, URL: "https://barcodeapi.org/types/"})
	if !errors.Is(err, ErrDryRun) {
		t.Fatalf("err = %v, want ErrDryRun", err)
	}

	var payload struct {
		DryRun Preview `json:"dry_run"`
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if payload.DryRun.Method != http.MethodGet || payload.DryRun.URL != "https://barcodeapi.org/types/" {
		t.Errorf("payload = %+v", payload.DryRun)
	}
}
