package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the metadata cache",
	}
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear cached types and server info",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			store, err := openCacheStore()
			if err != nil {
				return err
			}
			if c, ok := store.(io.Closer); ok {
				defer func() { _ = c.Close() }()
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		}),
	}
}
