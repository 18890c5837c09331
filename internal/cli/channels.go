package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"folio/internal/delivery"
)

// NewChannelsCommand creates the channels command.
func NewChannelsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "Show which delivery methods are configured",
		Args:  cobra.NoArgs,
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

			chain := buildChain(cmd.Context(), cfg, nil, log)
			enabled := map[delivery.Method]bool{}
			for _, m := range chain.Methods() {
				enabled[m] = true
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tSTATUS")
			if cfg.Delivery.DemoMode {
				fmt.Fprintln(w, "demo\tactive (nothing is sent)")
			}
			for _, m := range []delivery.Method{delivery.MethodWeb3Forms, delivery.MethodEmailJS, delivery.MethodGmail, delivery.MethodClient} {
				status := "not configured"
				switch {
				case cfg.Delivery.DemoMode:
					status = "bypassed"
				case enabled[m]:
					status = "configured"
				}
				fmt.Fprintf(w, "%s\t%s\n", m, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if !cfg.Delivery.DemoMode && len(chain.Methods()) == 1 {
				fmt.Fprintln(cmd.OutOrStdout(), "\nOnly the mail client fallback is available; replies will open a mailto: link.")
			}
			return nil
		},
	}
}
