package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"folio/internal/web"
)

type serveOptions struct {
	addr         string
	secureCookie bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portfolio page, contact form and admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default $FOLIO_HTTP_ADDR)")
	cmd.Flags().BoolVar(&opts.secureCookie, "secure-cookie", false, "mark the session cookie Secure (behind TLS)")
	return cmd
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions, opts *serveOptions) error {
	e, err := rootOpts.open(true)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chain := buildChain(ctx, e.cfg, nil, e.log)
	e.log.Info("delivery channels", zap.Any("methods", chain.Methods()))

	srv, err := web.New(web.Options{
		Site:          e.site,
		Dashboard:     e.dashboardWith(chain),
		Auth:          e.backend.auth,
		NotifyOwner:   e.cfg.NotifyOwner,
		NotifyTimeout: e.cfg.Delivery.Timeout + e.cfg.Delivery.DemoDelay,
		SecureCookie:  opts.secureCookie,
		Logger:        e.log.Named("web"),
	})
	if err != nil {
		return err
	}

	addr := opts.addr
	if addr == "" {
		addr = e.cfg.HTTPAddr
	}
	return srv.Run(ctx, addr)
}
