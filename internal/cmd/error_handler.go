package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
	"github.com/barcodeapi/barcodeapi-cli/internal/config"
	"github.com/barcodeapi/barcodeapi-cli/internal/iocontext"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder
	var apiErr *api.APIError
	var cbErr *api.CircuitBreakerError

	switch {
	case errors.As(err, &apiErr):
		fmt.Fprintf(&msg, "API error (HTTP %d): %s\n\n", apiErr.StatusCode, apiErr.Body)
		msg.WriteString(suggestionsForStatusCode(apiErr.StatusCode))
		if apiErr.RequestID != "" {
			fmt.Fprintf(&msg, "\nRequest ID: %s\n", apiErr.RequestID)
		}

	case errors.As(err, &cbErr):
		fmt.Fprintf(&msg, "Error: %s\n\n", cbErr)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - The server failed repeatedly; wait before retrying\n")
		msg.WriteString("  - Check the server status: barcodeapi info\n")

	case errors.Is(err, config.ErrNotConfigured):
		fmt.Fprintf(&msg, "Error: %s\n\n", err)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: barcodeapi auth login --token YOUR_TOKEN\n")
		msg.WriteString("  - Or drop --profile to use anonymous access\n")

	case errors.Is(err, iocontext.ErrEmptyPayload):
		msg.WriteString("Error: the upload is empty.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the file path\n")
		msg.WriteString("  - When piping, make sure the producer wrote data\n")

	case strings.Contains(err.Error(), "connection refused"):
		msg.WriteString("Connection refused.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the server is running\n")
		msg.WriteString("  - Verify the URL: barcodeapi auth status\n")

	case strings.Contains(err.Error(), "no such host"):
		msg.WriteString("DNS resolution failed.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the --base-url spelling\n")
		msg.WriteString("  - Verify your DNS settings\n")

	case strings.Contains(err.Error(), "certificate"):
		msg.WriteString("TLS certificate error.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Verify the server's SSL certificate\n")
		msg.WriteString("  - Ensure you're using https:// correctly\n")

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func suggestionsForStatusCode(code int) string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggestions:\n")

	switch code {
	case 400, 422:
		suggestions.WriteString("  - Check the data is valid for the barcode type\n")
		suggestions.WriteString("  - Run: barcodeapi type <name> to see the accepted pattern\n")

	case 401, 403:
		suggestions.WriteString("  - Your token may be invalid or expired\n")
		suggestions.WriteString("  - Run: barcodeapi auth login --token YOUR_TOKEN\n")

	case 404:
		suggestions.WriteString("  - Check the barcode type or share key\n")
		suggestions.WriteString("  - Run: barcodeapi types to list supported types\n")

	case 429:
		suggestions.WriteString("  - Your token bucket is empty\n")
		suggestions.WriteString("  - Run: barcodeapi limiter to see when it refills\n")

	case 500, 502, 503, 504:
		suggestions.WriteString("  - Server error - not your fault\n")
		suggestions.WriteString("  - Wait and retry\n")

	default:
		suggestions.WriteString("  - Use --debug for more details\n")
	}

	return suggestions.String()
}
