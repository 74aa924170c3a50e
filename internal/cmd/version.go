package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barcodeapi/barcodeapi-cli/internal/update"
)

// version is set at build time via ldflags
var version = "dev"

// updateChecker is replaced in tests.
var updateChecker = update.NewChecker()

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "barcodeapi-cli version %s\n", version)

			// Never fails the command.
			if notice := updateChecker.Check(cmd.Context(), version).Notice(); notice != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\n%s\n", notice)
			}
		},
	}
}
