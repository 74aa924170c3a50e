// Package update looks for newer barcodeapi-cli releases.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// DefaultReleasesURL points at the latest GitHub release.
	DefaultReleasesURL = "https://api.github.com/repos/barcodeapi/barcodeapi-cli/releases/latest"
	CheckTimeout       = 5 * time.Second
)

type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

type CheckResult struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateURL       string
	UpdateAvailable bool
}

// Notice returns the one-line hint printed after a command, or "" when the
// installed build is current.
func (r *CheckResult) Notice() string {
	if r == nil || !r.UpdateAvailable {
		return ""
	}
	return fmt.Sprintf("A new barcodeapi release is available: %s -> %s (%s)", r.CurrentVersion, r.LatestVersion, r.UpdateURL)
}

// Checker queries a releases endpoint.
type Checker struct {
	URL  string
	HTTP *http.Client
}

// NewChecker returns a Checker for DefaultReleasesURL.
func NewChecker() *Checker {
	return &Checker{URL: DefaultReleasesURL, HTTP: http.DefaultClient}
}

// Check reports whether a newer version than currentVersion exists.
// Returns nil if the check fails - never blocks the CLI.
func (c *Checker) Check(ctx context.Context, currentVersion string) *CheckResult {
	if currentVersion == "dev" || currentVersion == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	release, err := c.latest(ctx)
	if err != nil {
		return nil
	}

	current := normalizeVersion(currentVersion)
	latest := normalizeVersion(release.TagName)

	result := &CheckResult{
		CurrentVersion: strings.TrimPrefix(currentVersion, "v"),
		LatestVersion:  strings.TrimPrefix(release.TagName, "v"),
		UpdateURL:      release.HTMLURL,
	}
	if semver.IsValid(current) && semver.IsValid(latest) {
		result.UpdateAvailable = semver.Compare(latest, current) > 0
	}
	return result
}

func (c *Checker) latest(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("release has no tag")
	}
	return &release, nil
}

func normalizeVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
