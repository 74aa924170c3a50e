package cmd

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
	"github.com/barcodeapi/barcodeapi-cli/internal/dryrun"
	"github.com/barcodeapi/barcodeapi-cli/internal/iocontext"
	"github.com/barcodeapi/barcodeapi-cli/internal/outfmt"
)

type generated struct {
	Index int    `json:"index"`
	Data  string `json:"data"`
	File  string `json:"file,omitempty"`
	Bytes int    `json:"bytes"`
	Error string `json:"error,omitempty"`
}

func newGenerateCmd() *cobra.Command {
	var (
		codeType    string
		params      []string
		headers     []string
		out         string
		outDir      string
		ext         string
		urlOnly     bool
		concurrency int64
	)

	cmd := &cobra.Command{
		Use:     "generate <data>...",
		Aliases: []string{"gen", "g"},
		Short:   "Render data as a barcode image",
		Long: strings.TrimSpace(`
Render one or more values as barcode images.

A single value is written to --out, or to stdout. Several values are rendered
concurrently into --out-dir as 1.png, 2.png, ... in argument order.
`),
		Example: strings.TrimSpace(`
  barcodeapi generate "hello world" --out hello.png
  barcodeapi generate 0123456789 --type 128 --param text=none --out code.png
  barcodeapi generate a b c --type qr --out-dir ./codes
  barcodeapi generate "hello" --url
`),
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := parseParams(params)
			if err != nil {
				return err
			}
			h, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			opts := &api.GenerateOptions{CodeType: codeType, Params: q, Headers: h}
			factory := newClientFactory(cmd.Context())
			defer factory.Close()

			if urlOnly {
				client, err := factory.client()
				if err != nil {
					return err
				}
				for _, data := range args {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), client.GenerateURL(data, codeType, q))
				}
				return nil
			}

			if len(args) == 1 && outDir == "" {
				client, err := factory.client()
				if err != nil {
					return err
				}
				body, err := client.Generate(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return writeBinary(cmd, out, body, map[string]any{"data": args[0]})
			}

			if out != "" {
				return fmt.Errorf("--out cannot be used with several values; use --out-dir")
			}
			if outDir == "" {
				return fmt.Errorf("--out-dir is required when generating more than one barcode")
			}
			if !dryrun.IsEnabled(ctx) {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("failed to create %q: %w", outDir, err)
				}
			}
			if ext != "" && !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}

			// Resolve once; every worker gets its own Client on the shared transport.
			cfg, err := factory.resolve()
			if err != nil {
				return err
			}
			results := runBulkOperation(ctx, args, concurrency, !isJSON(cmd), cmd.ErrOrStderr(),
				func(ctx context.Context, i int, data string) (generated, error) {
					body, err := factory.newClient(cfg).Generate(ctx, data, opts)
					if errors.Is(err, dryrun.ErrDryRun) {
						return generated{}, nil
					}
					if err != nil {
						return generated{}, err
					}
					path := filepath.Join(outDir, fmt.Sprintf("%d%s", i+1, ext))
					if err := os.WriteFile(path, body, 0o644); err != nil {
						return generated{}, fmt.Errorf("failed to write %q: %w", path, err)
					}
					return generated{File: path, Bytes: len(body)}, nil
				})

			// Under --dry-run the previews are the whole output.
			if _, failure := countResults(results); failure == 0 && dryrun.IsEnabled(ctx) {
				return nil
			}
			return reportGenerated(cmd, results)
		}),
	}

	cmd.Flags().StringVarP(&codeType, "type", "t", api.DefaultCodeType, "Barcode type (qr, 128, ean13, ...)")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Rendering parameter key=value, repeatable, sent in order")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra request header 'Name: value', repeatable")
	cmd.Flags().StringVar(&out, "out", "", "Output file for a single barcode (default stdout)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Output directory when rendering several values")
	cmd.Flags().StringVar(&ext, "ext", ".png", "File extension used with --out-dir")
	cmd.Flags().BoolVar(&urlOnly, "url", false, "Print the request URL instead of fetching the image")
	cmd.Flags().Int64Var(&concurrency, "concurrency", DefaultConcurrency, "Parallel requests with --out-dir")
	return cmd
}

func reportGenerated(cmd *cobra.Command, results []BulkResult[generated]) error {
	rows := make([]generated, 0, len(results))
	var firstErr error
	for _, r := range results {
		row := r.Data
		row.Index = r.Index + 1
		row.Data = r.Input
		if r.Error != nil {
			row.Error = r.Error.Error()
			if firstErr == nil {
				firstErr = r.Error
			}
		}
		rows = append(rows, row)
	}

	if isJSON(cmd) {
		if err := outfmt.NewFormatter(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr()).Output(rows); err != nil {
			return err
		}
	} else {
		for _, row := range rows {
			if row.Error == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), row.File)
			} else {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d (%s): %s\n", row.Index, row.Data, row.Error)
			}
		}
	}

	if success, failure := countResults(results); failure > 0 {
		return fmt.Errorf("%d of %d barcodes failed: %w", failure, success+failure, firstErr)
	}
	return nil
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <image-file|->",
		Short: "Decode the barcode in an image",
		Example: strings.TrimSpace(`
  barcodeapi decode code.png
  cat code.png | barcodeapi decode - --json
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			payload, err := iocontext.ReadPayload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			factory := newClientFactory(cmd.Context())
			defer factory.Close()
			client, err := factory.client()
			if err != nil {
				return err
			}
			body, err := client.Decode(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return printResponse(cmd, body)
		}),
	}
}

func newBulkCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "bulk <csv-file|->",
		Short: "Render many barcodes from a CSV file into a ZIP archive",
		Example: strings.TrimSpace(`
  barcodeapi bulk codes.csv --out codes.zip
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			payload, err := iocontext.ReadPayload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			factory := newClientFactory(cmd.Context())
			defer factory.Close()
			client, err := factory.client()
			if err != nil {
				return err
			}
			body, err := client.BulkGenerate(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return writeBinary(cmd, out, body, map[string]any{"source": args[0]})
		}),
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file for the ZIP archive (default stdout)")
	return cmd
}

// writeBinary writes an image or archive to path (stdout when empty). In JSON
// mode a summary is printed instead; without a path it carries the bytes as
// base64.
func writeBinary(cmd *cobra.Command, path string, body []byte, meta map[string]any) error {
	ctx := cmd.Context()
	if !isJSON(cmd) {
		return iocontext.WriteOutput(ctx, path, body)
	}

	summary := map[string]any{"bytes": len(body)}
	for k, v := range meta {
		summary[k] = v
	}
	if path != "" && path != "-" {
		if err := iocontext.WriteOutput(ctx, path, body); err != nil {
			return err
		}
		summary["file"] = path
	} else {
		summary["base64"] = base64.StdEncoding.EncodeToString(body)
	}
	return outfmt.NewFormatter(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr()).Output(summary)
}

// parseHeaders reads "Name: value" pairs.
func parseHeaders(pairs []string) (api.Headers, error) {
	var h api.Headers
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return api.Headers{}, fmt.Errorf("invalid --header %q: expected 'Name: value'", pair)
		}
		h.Set(name, strings.TrimSpace(value))
	}
	return h, nil
}
