package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/pkg/authclient"
	"github.com/spf13/cobra"
)

// Commands accepted at the code prompt.
const (
	cmdResend = ":resend"
	cmdBack   = ":back"
)

// NewLoginCommand creates the interactive two step login.
func NewLoginCommand() *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a password and a verification code",
		Long: `Sign in with an identifier and password, then confirm the code sent to your phone.
At the code prompt, type :resend for a new code or :back to change the credentials.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := authclient.NewClient(server)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			v := authclient.NewVerifier(client, authclient.NavigatorFunc(func(target string) {
				fmt.Fprintf(out, "%s\nRedirect: %s\n", authclient.StatusRedirect, target)
			}), authclient.WithTimeout(timeout))

			return runLogin(cmd.Context(), newPrompter(cmd), v)
		},
	}

	addServerFlags(cmd, &server, &timeout)

	return cmd
}

// runLogin drives v from the prompts until it redirects or the user aborts.
func runLogin(ctx context.Context, p *prompter, v *authclient.Verifier) error {
	for v.State() != authclient.StateRedirected {
		var err error
		switch v.State() {
		case authclient.StateAwaitingCredentials:
			err = credentialsStep(ctx, p, v)
		case authclient.StateAwaitingCode:
			err = codeStep(ctx, p, v)
		default:
			return fmt.Errorf("login stopped in state %s", v.State())
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func credentialsStep(ctx context.Context, p *prompter, v *authclient.Verifier) error {
	identifier, err := p.input("Username or email")
	if err != nil {
		return err
	}
	password, err := p.password("Password")
	if err != nil {
		return err
	}

	if err := v.SubmitCredentials(ctx, identifier, password); err != nil {
		fmt.Fprintln(p.out, authclient.UserMessage(err))
		return nil
	}

	fmt.Fprintln(p.out, v.View().Status)
	return nil
}

func codeStep(ctx context.Context, p *prompter, v *authclient.Verifier) error {
	input, err := p.input("Code")
	if err != nil {
		return err
	}

	switch input {
	case cmdBack:
		v.BackToCredentials()
		return nil
	case cmdResend:
		err = v.Resend(ctx)
		if err == nil {
			fmt.Fprintln(p.out, v.View().Status)
			return nil
		}
	default:
		err = v.SubmitCode(ctx, input)
	}

	if err != nil {
		fmt.Fprintln(p.out, authclient.UserMessage(err))
	}
	return nil
}
