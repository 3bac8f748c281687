package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/pkg/authclient"
	"github.com/spf13/cobra"
)

// NewTOTPLoginCommand creates the authenticator-code login. On a server
// without users the same code finishes the first-run setup.
func NewTOTPLoginCommand() *cobra.Command {
	var (
		server  string
		timeout time.Duration
		code    string
	)

	cmd := &cobra.Command{
		Use:   "totp-login",
		Short: "Sign in with an authenticator code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := authclient.NewClient(server)
			if err != nil {
				return err
			}

			if code == "" {
				code, err = newPrompter(cmd).input("Authenticator code")
				if err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := client.LoginWithTOTP(ctx, code)
			if err != nil {
				return errors.New(authclient.UserMessage(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\nRedirect: %s\n", authclient.StatusRedirect, res.Redirect)
			return nil
		},
	}

	addServerFlags(cmd, &server, &timeout)
	cmd.Flags().StringVar(&code, "code", "", "authenticator code, prompted when empty")

	return cmd
}
