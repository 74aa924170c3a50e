package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
	"github.com/barcodeapi/barcodeapi-cli/internal/config"
	"github.com/barcodeapi/barcodeapi-cli/internal/iocontext"
	"github.com/barcodeapi/barcodeapi-cli/internal/outfmt"
	"github.com/barcodeapi/barcodeapi-cli/internal/validation"
)

// newAuthCmd returns the auth command with subcommands
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored API tokens",
		Long:  "Store BarcodeAPI tokens in your OS keychain as named profiles. Anonymous access needs no login.",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		tokenStdin bool
		verify     bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a token to a profile",
		Example: strings.TrimSpace(`
  barcodeapi auth login --token YOUR_TOKEN
  echo "$TOKEN" | barcodeapi auth login --token-stdin --profile work --verify
  barcodeapi auth login --token YOUR_TOKEN --base-url https://barcodes.example.com --profile self-hosted
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			token := strings.TrimSpace(flags.Token)
			if tokenStdin {
				if token != "" {
					return fmt.Errorf("--token conflicts with --token-stdin")
				}
				data, err := io.ReadAll(iocontext.GetIO(ctx).In)
				if err != nil {
					return fmt.Errorf("failed to read token from stdin: %w", err)
				}
				token = strings.TrimSpace(string(data))
			}
			if token == "" {
				return fmt.Errorf("--token or --token-stdin is required")
			}

			profile := strings.TrimSpace(flags.Profile)
			if profile == "" {
				profile = "default"
			}
			p := config.Profile{
				BaseURL: strings.TrimSuffix(strings.TrimSpace(flags.BaseURL), "/"),
				Token:   token,
			}
			if p.BaseURL != "" {
				if err := validation.ValidateBaseURL(p.BaseURL); err != nil {
					return fmt.Errorf("invalid --base-url %q: %w", p.BaseURL, err)
				}
			}

			if verify {
				factory := newClientFactory(cmd.Context())
				defer factory.Close()
				client := factory.newClient(config.ClientConfig{BaseURL: p.BaseURL, Token: p.Token})
				if _, err := client.GetLimiter(ctx); err != nil {
					return fmt.Errorf("token verification failed: %w", err)
				}
			}

			if err := config.SaveProfile(profile, p); err != nil {
				return err
			}

			if isJSON(cmd) {
				return outfmt.NewFormatter(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr()).Output(map[string]any{
					"profile":  profile,
					"base_url": displayBaseURL(p.BaseURL),
					"token":    maskToken(p.Token),
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q (%s)\n", profile, displayBaseURL(p.BaseURL))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "Read the token from stdin")
	cmd.Flags().BoolVar(&verify, "verify", false, "Check the token against the limiter endpoint before saving")
	return cmd
}

type authStatus struct {
	Profile     string   `json:"profile,omitempty"`
	BaseURL     string   `json:"base_url"`
	Token       string   `json:"token,omitempty"`
	TokenSource string   `json:"token_source,omitempty"`
	Profiles    []string `json:"profiles"`
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which token and server will be used",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			cfg, err := newClientFactory(cmd.Context()).resolve()
			if err != nil {
				return err
			}
			// An unreadable keyring just means no stored profiles.
			profiles, _ := config.ListProfiles()
			status := authStatus{
				Profile:     cfg.Profile,
				BaseURL:     displayBaseURL(cfg.BaseURL),
				Token:       maskToken(cfg.Token),
				TokenSource: cfg.Source,
				Profiles:    append([]string{}, profiles...),
			}

			f := outfmt.NewFormatter(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if isJSON(cmd) {
				return f.Output(status)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Server:  %s\n", status.BaseURL)
			if status.Token == "" {
				_, _ = fmt.Fprintln(out, "Token:   none (anonymous)")
			} else {
				_, _ = fmt.Fprintf(out, "Token:   %s (from %s)\n", status.Token, status.TokenSource)
			}
			if len(status.Profiles) == 0 {
				f.Empty("No profiles stored")
				return nil
			}
			_, _ = fmt.Fprintln(out)
			f.StartTable([]string{"", "PROFILE"})
			for _, name := range status.Profiles {
				mark := ""
				if name == cfg.Profile {
					mark = "*"
				}
				f.Row(mark, name)
			}
			return f.EndTable()
		}),
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove a stored profile (the current one unless --profile is set)",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			name := strings.TrimSpace(flags.Profile)
			if name == "" {
				current, err := config.CurrentProfile()
				if err != nil {
					return err
				}
				name = current
			}
			if err := config.DeleteProfile(name); err != nil {
				return err
			}
			if isJSON(cmd) {
				return outfmt.NewFormatter(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr()).Output(map[string]any{"removed": name})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed profile %q\n", name)
			return nil
		}),
	}
}

func displayBaseURL(baseURL string) string {
	if baseURL == "" {
		return api.DefaultBaseURL
	}
	return baseURL
}
