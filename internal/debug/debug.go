// Package debug carries the --debug switch through contexts and configures
// the process-wide slog logger.
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

// WithDebug returns a context with debug mode enabled/disabled.
func WithDebug(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, contextKey{}, enabled)
}

// IsEnabled returns true if debug mode is enabled in the context.
func IsEnabled(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	if v, ok := ctx.Value(contextKey{}).(bool); ok {
		return v
	}
	return false
}

// SetupLogger installs the default slog logger writing to w (stderr when nil).
// Debug mode logs at debug level, otherwise only warnings and errors.
// BARCODEAPI_LOG_FORMAT=json switches to the JSON handler.
func SetupLogger(w io.Writer, debugEnabled bool) {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelWarn
	if debugEnabled {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(os.Getenv("BARCODEAPI_LOG_FORMAT")), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}
