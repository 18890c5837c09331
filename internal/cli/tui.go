package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"folio/internal/tui"
)

// NewAdminCommand creates the admin command.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "Review contact submissions in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Terminal UIs log to file only.
			e, err := rootOpts.open(false)
			if err != nil {
				return err
			}
			defer e.Close()

			m := tui.NewAppModel(e.dashboard(cmd.Context(), terminalLauncher), e.backend.auth, e.log.Named("tui"))
			defer m.Close()
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			m.SetProgram(p)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run dashboard: %w", err)
			}
			return m.Err()
		},
	}
}

type browseOptions struct {
	fragment string
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &browseOptions{}
	cmd := &cobra.Command{
		Use:   "browse [#section]",
		Short: "Browse the portfolio in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			log, err := cfg.Log.Prepare(false)
			if err != nil {
				return fmt.Errorf("prepare logging: %w", err)
			}
			defer log.Sync()
			site, err := loadSite(cfg)
			if err != nil {
				return err
			}

			fragment := opts.fragment
			if len(args) == 1 {
				fragment = args[0]
			}
			if fragment != "" && fragment[0] != '#' {
				fragment = "#" + fragment
			}

			m, err := tui.NewBrowseModel(site, fragment, log.Named("browse"))
			if err != nil {
				return err
			}
			defer m.Close()
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			m.SetProgram(p)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run browser: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.fragment, "at", "", "section to open at")
	return cmd
}
