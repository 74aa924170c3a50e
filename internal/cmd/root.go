package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
	"github.com/barcodeapi/barcodeapi-cli/internal/config"
	"github.com/barcodeapi/barcodeapi-cli/internal/debug"
	"github.com/barcodeapi/barcodeapi-cli/internal/dryrun"
	"github.com/barcodeapi/barcodeapi-cli/internal/iocontext"
	"github.com/barcodeapi/barcodeapi-cli/internal/outfmt"
)

const (
	transportHTTP  = "http"
	transportResty = "resty"
)

// rootFlags holds global CLI flags
type rootFlags struct {
	Output    string
	JSON      bool
	Query     string
	Compact   bool
	Debug     bool
	Quiet     bool
	Timeout   time.Duration
	BaseURL   string
	Token     string
	Profile   string
	NoCache   bool
	DryRun    bool
	Transport string
}

// flags holds the global command flags. This is package-level mutable state
// that MUST be reset at the start of every Execute() call.
var flags = defaultFlags()

func defaultFlags() rootFlags {
	return rootFlags{
		Output:    defaultOutput(),
		Timeout:   api.DefaultTimeout,
		Transport: transportHTTP,
	}
}

func defaultOutput() string {
	if value := strings.TrimSpace(os.Getenv("BARCODEAPI_OUTPUT")); value != "" {
		return value
	}
	return "text"
}

// Execute runs the root command
func Execute(ctx context.Context, args []string) error {
	// Load <config>/.env before the flag reset so env-driven defaults such as
	// BARCODEAPI_OUTPUT see its values.
	if err := config.LoadDotEnv(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	flags = defaultFlags()

	root := &cobra.Command{
		Use:                "barcodeapi",
		Short:              "CLI for the BarcodeAPI.org barcode service",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true, // enhanceUnknownError does this
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if flags.JSON {
				if cmd.Flags().Changed("output") && flags.Output != "json" {
					return fmt.Errorf("--json conflicts with --output %s", flags.Output)
				}
				flags.Output = "json"
			}
			mode, err := outfmt.Parse(strings.TrimSpace(flags.Output))
			if err != nil {
				return err
			}
			if flags.Timeout < 0 {
				return fmt.Errorf("--timeout must be >= 0")
			}
			switch flags.Transport {
			case transportHTTP, transportResty:
			default:
				return fmt.Errorf("invalid --transport %q (use %q or %q)", flags.Transport, transportHTTP, transportResty)
			}

			ctx = outfmt.WithMode(ctx, mode)
			ctx = outfmt.WithCompact(ctx, flags.Compact)
			if q := strings.TrimSpace(flags.Query); q != "" {
				ctx = outfmt.WithQuery(ctx, q)
			}

			ioStreams := iocontext.DefaultIO()
			if flags.Quiet {
				ioStreams.ErrOut = io.Discard
			}
			ctx = iocontext.WithIO(ctx, ioStreams)
			cmd.SetOut(ioStreams.Out)
			cmd.SetErr(ioStreams.ErrOut)

			debug.SetupLogger(ioStreams.ErrOut, flags.Debug)
			ctx = debug.WithDebug(ctx, flags.Debug)
			ctx = dryrun.WithDryRun(ctx, flags.DryRun)
			slog.Debug("command start", "command", cmd.CommandPath(), "output", mode.String(), "transport", flags.Transport)

			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetContext(ctx)
	root.SetArgs(args)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text|json (env BARCODEAPI_OUTPUT)")
	pf.BoolVar(&flags.JSON, "json", false, "Shorthand for --output json")
	pf.StringVarP(&flags.Query, "query", "q", "", "JQ expression to filter JSON output")
	pf.BoolVar(&flags.Compact, "compact-json", false, "Compact JSON output (no indentation)")
	pf.BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	pf.BoolVarP(&flags.Quiet, "quiet", "Q", false, "Suppress non-essential output")
	pf.DurationVar(&flags.Timeout, "timeout", flags.Timeout, "HTTP request timeout (e.g., 30s, 2m)")
	pf.StringVar(&flags.BaseURL, "base-url", "", "Service URL (env BARCODEAPI_BASE_URL, default "+api.DefaultBaseURL+")")
	pf.StringVar(&flags.Token, "token", "", "API token (env BARCODEAPI_TOKEN)")
	pf.StringVar(&flags.Profile, "profile", "", "Stored profile to use (env BARCODEAPI_PROFILE)")
	pf.BoolVar(&flags.NoCache, "no-cache", false, "Bypass the metadata cache (env BARCODEAPI_NO_CACHE)")
	pf.BoolVar(&flags.DryRun, "dry-run", false, "Print the requests that would be sent without sending them")
	pf.StringVar(&flags.Transport, "transport", flags.Transport, "HTTP stack: http|resty")

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newBulkCmd())
	root.AddCommand(newInfoCmd())
	root.AddCommand(newTypesCmd())
	root.AddCommand(newTypeCmd())
	root.AddCommand(newLimiterCmd())
	root.AddCommand(newSessionCmd())
	root.AddCommand(newShareCmd())
	root.AddCommand(newAuthCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newVersionCmd())

	targetCmd, err := root.ExecuteC()
	if err != nil {
		if !errors.Is(err, errAlreadyHandled) {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), enhanceUnknownError(err, root, targetCmd))
		}
		return err
	}
	return nil
}

// enhanceUnknownError adds "did you mean?" suggestions to unknown command/flag errors.
// targetCmd is the command Cobra resolved before the error (may be root itself).
func enhanceUnknownError(err error, root *cobra.Command, targetCmd *cobra.Command) string {
	msg := err.Error()

	if strings.Contains(msg, "unknown command") {
		if unknown := extractQuoted(msg); unknown != "" {
			var names []string
			for _, c := range root.Commands() {
				if c.IsAvailableCommand() || c.Name() == "help" {
					names = append(names, c.Name())
					names = append(names, c.Aliases...)
				}
			}
			if suggestion := suggestCommand(unknown, names); suggestion != "" {
				return fmt.Sprintf("%s\n\nDid you mean %q?", msg, suggestion)
			}
		}
	}

	if strings.Contains(msg, "unknown flag") || strings.Contains(msg, "unknown shorthand flag") {
		if unknown := extractFlag(msg); unknown != "" {
			seen := make(map[string]bool)
			var flagNames []string
			addFlags := func(fs *pflag.FlagSet) {
				fs.VisitAll(func(f *pflag.Flag) {
					name := "--" + f.Name
					if !seen[name] {
						seen[name] = true
						flagNames = append(flagNames, name)
					}
					if f.Shorthand != "" {
						short := "-" + f.Shorthand
						if !seen[short] {
							seen[short] = true
							flagNames = append(flagNames, short)
						}
					}
				})
			}
			cmd := targetCmd
			if cmd == nil {
				cmd = root
			}
			addFlags(cmd.Flags())
			addFlags(cmd.InheritedFlags())

			helpCmd := strings.TrimSpace(cmd.CommandPath()) + " --help"
			if suggestion := suggestFlag(unknown, flagNames); suggestion != "" {
				return fmt.Sprintf("%s\n\nDid you mean %q?\nRun %q to see supported flags.", msg, suggestion, helpCmd)
			}
			return fmt.Sprintf("%s\n\nRun %q to see supported flags.", msg, helpCmd)
		}
	}

	return msg
}

// extractQuoted extracts the first double-quoted substring from s.
func extractQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}

// extractFlag extracts a flag name (e.g., "--foo") from an error message.
func extractFlag(s string) string {
	idx := strings.Index(s, "--")
	if idx < 0 {
		// Shorthand errors look like "unknown shorthand flag: 'a' in -a".
		idx = strings.LastIndex(s, " -")
		if idx < 0 {
			return ""
		}
		idx++
	}
	rest := s[idx:]
	if end := strings.IndexAny(rest, " =\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
