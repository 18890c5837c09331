package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"folio/internal/auth"
)

type replyOptions struct {
	message  string
	email    string
	password string
	json     bool
}

// NewReplyCommand creates the reply command.
func NewReplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &replyOptions{}
	cmd := &cobra.Command{
		Use:   "reply <submission-id>",
		Short: "Reply to a submission through the delivery chain",
		Long: `Reply to a submission through the delivery chain.

The message is taken from --message, or read from stdin when omitted.
Against the hosted store, --email and --password sign in first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReply(cmd, rootOpts, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "reply text")
	cmd.Flags().StringVar(&opts.email, "email", "", "admin email for the hosted store")
	cmd.Flags().StringVar(&opts.password, "password", "", "admin password for the hosted store")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the delivery result as JSON")
	return cmd
}

func runReply(cmd *cobra.Command, rootOpts *RootOptions, opts *replyOptions, id string) error {
	e, err := rootOpts.open(true)
	if err != nil {
		return err
	}
	defer e.Close()

	message := opts.message
	if message == "" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		message = string(b)
	}

	ctx := cmd.Context()
	if opts.email != "" {
		ctx, err = signedIn(ctx, e.backend.auth, opts.email, opts.password)
		if err != nil {
			return err
		}
	}

	dash := e.dashboard(ctx, terminalLauncher)
	sub, err := dash.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load submission %s: %w", id, err)
	}
	res, err := dash.Reply(ctx, sub, message)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else if res.Success {
		fmt.Fprintf(out, "%s (%s)\n", res.Message, res.Method)
		if res.Link != "" {
			fmt.Fprintln(out, res.Link)
		}
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	if sub.ReadAt == nil {
		return dash.MarkRead(ctx, sub.ID)
	}
	return nil
}

func signedIn(ctx context.Context, a auth.Authenticator, email, password string) (context.Context, error) {
	sess, err := a.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return ctx, fmt.Errorf("sign in: %w", err)
	}
	return auth.WithToken(ctx, sess.Token), nil
}
