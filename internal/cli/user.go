package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"folio/internal/util"
)

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(newUserAddCommand(rootOpts))
	return cmd
}

type userAddOptions struct {
	password string
}

func newUserAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &userAddOptions{}
	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Register an admin account",
		Long: `Register an admin account.

The password is taken from --password, or read as the first line of stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, ok := util.NormalizeEmail(args[0])
			if !ok {
				return fmt.Errorf("invalid email address %q", args[0])
			}
			password := opts.password
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password required: pass --password or pipe it on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if len(password) < 6 {
				return errors.New("password must be at least 6 characters")
			}

			e, err := rootOpts.open(false)
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := e.backend.auth.SignUp(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.password, "password", "", "account password")
	return cmd
}
