package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"folio/internal/gmail"
)

// NewGmailAuthCommand creates the gmail-auth command.
func NewGmailAuthCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gmail-auth",
		Short: "Authorize the Gmail delivery channel",
		Long: `Authorize the Gmail delivery channel.

Reads client_secret.json from the config directory, runs the browser consent
flow and caches the token so that FOLIO_GMAIL=true can send without prompting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			if err := gmail.Authorize(cmd.Context(), cfg.ConfigDir, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Gmail authorized. Set FOLIO_GMAIL=true to enable the channel.")
			return nil
		},
	}
}
