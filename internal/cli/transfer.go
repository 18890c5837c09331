package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"folio/internal/admin"
	"folio/internal/export"
)

type exportOptions struct {
	out      string
	filter   string
	email    string
	password string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write submissions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := admin.ParseFilter(opts.filter)
			if err != nil {
				return err
			}
			e, err := rootOpts.open(false)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			if opts.email != "" {
				if ctx, err = signedIn(ctx, e.backend.auth, opts.email, opts.password); err != nil {
					return err
				}
			}
			subs, err := e.backend.rows.ListSubmissions(ctx)
			if err != nil {
				return fmt.Errorf("list submissions: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if opts.out != "" && opts.out != "-" {
				file, err := os.Create(opts.out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return export.WriteCSV(w, f.Apply(subs))
		},
	}
	cmd.Flags().StringVarP(&opts.out, "output", "o", "-", "output file")
	cmd.Flags().StringVar(&opts.filter, "filter", "all", "all, new or read")
	cmd.Flags().StringVar(&opts.email, "email", "", "admin email for the hosted store")
	cmd.Flags().StringVar(&opts.password, "password", "", "admin password for the hosted store")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load submissions from CSV into the local store",
		Long: `Load submissions from CSV into the local store.

Rows are matched by id: existing submissions are updated, new ones inserted.
Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rootOpts.open(false)
			if err != nil {
				return err
			}
			defer e.Close()
			db, err := e.backend.requireLocal("import")
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				r = file
			}
			subs, err := export.ReadCSV(r)
			if err != nil {
				return err
			}
			if err := db.UpsertSubmissions(cmd.Context(), subs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d submissions\n", len(subs))
			return nil
		},
	}
}
