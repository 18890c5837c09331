// Package cli wires configuration, stores and front ends into the folio command.
package cli

import (
	"github.com/spf13/cobra"

	"folio/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigDir string
	Verbose   bool
}

// NewRootCommand creates the root command for the folio CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "folio",
		Short: "Portfolio site with a contact-review dashboard",
		Long: `Serve a portfolio site with a contact form, browse it in the terminal,
and review, answer and export contact submissions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config", "", "config directory (default $FOLIO_CONFIG_DIR or ~/.config/folio)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))
	cmd.AddCommand(NewBrowseCommand(opts))
	cmd.AddCommand(NewReplyCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewGmailAuthCommand(opts))
	cmd.AddCommand(NewChannelsCommand(opts))

	return cmd
}

// load reads the environment and applies the global flags.
func (o *RootOptions) load() (config.Config, error) {
	cfg, err := config.LoadIn(o.ConfigDir)
	if err != nil {
		return config.Config{}, err
	}
	if o.Verbose {
		cfg.Log.ConsoleLevel = "debug"
		if cfg.Log.FileLevel != "none" {
			cfg.Log.FileLevel = "debug"
		}
	}
	return cfg, nil
}
