// Package iocontext provides injectable I/O streams via context, plus the
// payload reading shared by upload commands.
package iocontext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// IO holds the input/output streams for commands.
type IO struct {
	Out    io.Writer // stdout
	ErrOut io.Writer // stderr
	In     io.Reader // stdin
}

// DefaultIO returns the standard IO streams.
func DefaultIO() *IO {
	return &IO{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
		In:     os.Stdin,
	}
}

type ioKey struct{}

// WithIO adds IO streams to a context.
func WithIO(ctx context.Context, io *IO) context.Context {
	return context.WithValue(ctx, ioKey{}, io)
}

// GetIO retrieves IO streams from context, defaulting to standard streams.
func GetIO(ctx context.Context) *IO {
	if io, ok := ctx.Value(ioKey{}).(*IO); ok && io != nil {
		return io
	}
	return DefaultIO()
}

// ErrEmptyPayload is returned when an upload source contains no bytes.
var ErrEmptyPayload = errors.New("payload is empty")

// ReadPayload reads an upload from path, or from the context's stdin when
// path is "-".
func ReadPayload(ctx context.Context, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("file path is required (use - for stdin)")
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(GetIO(ctx).In)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	return data, nil
}

// WriteOutput writes data to path, or to the context's stdout when path is
// empty or "-".
func WriteOutput(ctx context.Context, path string, data []byte) error {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		_, err := GetIO(ctx).Out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}
