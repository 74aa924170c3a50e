package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
)

func newShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Create or fetch shared barcode sets",
	}
	cmd.AddCommand(newShareCreateCmd())
	cmd.AddCommand(newFetchCmd("get <key>", "Fetch a shared barcode set", cobra.ExactArgs(1),
		func(ctx context.Context, c *api.Client, args []string) ([]byte, error) {
			return c.GetShare(ctx, args[0])
		}))
	return cmd
}

func newShareCreateCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "create <request>...",
		Short: "Share a set of barcode requests",
		Long: strings.TrimSpace(`
Create a share from barcode request URIs such as /api/qr/hello.

With --raw every argument is sent as a JSON fragment exactly as given.
`),
		Example: strings.TrimSpace(`
  barcodeapi share create /api/qr/hello /api/128/0123
  barcodeapi share create --raw '"/api/qr/a"' '"/api/qr/b"'
`),
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			fragments := args
			if !raw {
				fragments = api.ShareRequests(args...)
			}
			factory := newClientFactory(cmd.Context())
			defer factory.Close()
			client, err := factory.client()
			if err != nil {
				return err
			}
			body, err := client.CreateShare(cmd.Context(), fragments)
			if err != nil {
				return err
			}
			return printResponse(cmd, body)
		}),
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Send arguments as JSON fragments without quoting")
	return cmd
}
