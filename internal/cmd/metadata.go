package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
)

// newFetchCmd builds a command that performs one read-only call and prints
// the response.
func newFetchCmd(use, short string, args cobra.PositionalArgs, call func(ctx context.Context, c *api.Client, args []string) ([]byte, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			factory := newClientFactory(cmd.Context())
			defer factory.Close()
			client, err := factory.client()
			if err != nil {
				return err
			}
			body, err := call(cmd.Context(), client, args)
			if err != nil {
				return err
			}
			return printResponse(cmd, body)
		}),
	}
}

func newInfoCmd() *cobra.Command {
	return newFetchCmd("info", "Show server information", cobra.NoArgs,
		func(ctx context.Context, c *api.Client, _ []string) ([]byte, error) {
			return c.GetInfo(ctx)
		})
}

func newTypesCmd() *cobra.Command {
	return newFetchCmd("types", "List supported barcode types", cobra.NoArgs,
		func(ctx context.Context, c *api.Client, _ []string) ([]byte, error) {
			return c.GetTypes(ctx)
		})
}

func newTypeCmd() *cobra.Command {
	return newFetchCmd("type <name>", "Show details for one barcode type", cobra.ExactArgs(1),
		func(ctx context.Context, c *api.Client, args []string) ([]byte, error) {
			return c.GetType(ctx, args[0])
		})
}

func newLimiterCmd() *cobra.Command {
	cmd := newFetchCmd("limiter", "Show the rate limiter state for the current token", cobra.NoArgs,
		func(ctx context.Context, c *api.Client, _ []string) ([]byte, error) {
			return c.GetLimiter(ctx)
		})
	cmd.Aliases = []string{"limits"}
	return cmd
}

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or end the server session",
	}
	cmd.AddCommand(newFetchCmd("get", "Show the current session", cobra.NoArgs,
		func(ctx context.Context, c *api.Client, _ []string) ([]byte, error) {
			return c.GetSession(ctx)
		}))
	cmd.AddCommand(newFetchCmd("delete", "End the current session", cobra.NoArgs,
		func(ctx context.Context, c *api.Client, _ []string) ([]byte, error) {
			return c.DeleteSession(ctx)
		}))
	return cmd
}
