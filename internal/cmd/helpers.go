package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
	"github.com/barcodeapi/barcodeapi-cli/internal/dryrun"
	"github.com/barcodeapi/barcodeapi-cli/internal/outfmt"
)

// errAlreadyHandled is a sentinel error indicating the error was already printed to stderr.
// Commands using RunE return this to signal Cobra that an error occurred (for exit code)
// without Cobra printing it again (since SilenceErrors is true on root command).
var errAlreadyHandled = errors.New("error already handled")

type handledError struct {
	err      error
	exitCode int
}

func (e *handledError) Error() string {
	return e.err.Error()
}

func (e *handledError) Unwrap() error {
	return errAlreadyHandled
}

func (e *handledError) ExitCode() int {
	return e.exitCode
}

// RunE wraps a command function with enhanced error handling
func RunE(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil || errors.Is(err, dryrun.ErrDryRun) {
			return nil
		}
		if isJSON(cmd) {
			_ = printJSONErr(cmd, api.StructuredErrorFromError(err))
		} else {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), HandleError(err))
		}
		// Keep the original error reachable for callers and tests.
		return &handledError{err: err, exitCode: ExitCode(err)}
	}
}

func isJSON(cmd *cobra.Command) bool {
	return outfmt.IsJSON(cmd.Context())
}

func printJSONErr(cmd *cobra.Command, se *api.StructuredError) error {
	return outfmt.WriteJSONMaybeCompact(cmd.ErrOrStderr(), map[string]any{"error": se}, outfmt.IsCompact(cmd.Context()))
}

// printResponse writes a service response to stdout according to the
// output flags.
func printResponse(cmd *cobra.Command, body []byte) error {
	return outfmt.WriteResponse(cmd.Context(), cmd.OutOrStdout(), body)
}

// parseParams turns repeated key=value flags into an ordered query.
func parseParams(pairs []string) (api.Query, error) {
	var q api.Query
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", pair)
		}
		q = q.Add(key, value)
	}
	return q, nil
}

// maskToken hides all but the last four characters of a token.
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
