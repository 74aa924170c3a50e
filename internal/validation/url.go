// Package validation checks user-supplied service URLs before any request is
// sent to them.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// cloudMetadataHosts are never valid service roots, even for self-hosted
// deployments on private networks.
var cloudMetadataHosts = []string{
	"169.254.169.254",
	"metadata.google.internal",
	"metadata",
	"instance-data",
	"fd00:ec2::254",
}

// ValidateBaseURL checks that rawURL can serve as a BarcodeAPI service root.
// It checks that the URL:
//   - Uses http or https scheme
//   - Contains a hostname and no credentials
//   - Carries no query string or fragment
//   - Does not target cloud metadata endpoints
//
// Private and loopback hosts are allowed so self-hosted servers keep working.
func ValidateBaseURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: only http and https are allowed, got %q", parsedURL.Scheme)
	}

	hostname := parsedURL.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL must contain a hostname")
	}
	if parsedURL.User != nil {
		return fmt.Errorf("URL must not contain credentials; use --token instead")
	}
	if parsedURL.RawQuery != "" || parsedURL.Fragment != "" {
		return fmt.Errorf("URL must not contain a query string or fragment")
	}
	if isCloudMetadata(hostname) {
		return fmt.Errorf("cloud metadata endpoints are not allowed")
	}
	return nil
}

func isCloudMetadata(hostname string) bool {
	lowercase := strings.ToLower(hostname)
	for _, endpoint := range cloudMetadataHosts {
		if lowercase == endpoint {
			return true
		}
	}
	return strings.HasSuffix(lowercase, ".metadata.google.internal")
}
