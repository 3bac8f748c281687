package cmd

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"
)

// ExitError carries a process exit code other than 1.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

const defaultServer = "http://localhost:8080"

// NewRootCommand creates the taskdeck command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskdeck",
		Short:         "Taskdeck command line tools",
		Long:          `Taskdeck signs in against a running server and runs maintenance tasks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(NewLoginCommand())
	cmd.AddCommand(NewTOTPLoginCommand())
	cmd.AddCommand(NewUsersCommand())

	return cmd
}

func addServerFlags(cmd *cobra.Command, server *string, timeout *time.Duration) {
	cmd.Flags().StringVarP(server, "server", "s", defaultServer, "base URL of the taskdeck server")
	cmd.Flags().DurationVar(timeout, "timeout", 15*time.Second, "timeout of every request")
}

// askOne asks a single question. Tests replace it with scripted answers.
var askOne = survey.AskOne

// errAborted is returned when the user interrupts or input ends.
var errAborted = errors.New("login aborted")

// prompter asks questions on the command's stdio.
type prompter struct {
	opts []survey.AskOpt
	out  io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{
		opts: []survey.AskOpt{survey.WithStdio(
			fileReader(cmd.InOrStdin()),
			fileWriter(cmd.OutOrStdout()),
			fileWriter(cmd.ErrOrStderr()),
		)},
		out: cmd.OutOrStdout(),
	}
}

func (p *prompter) input(msg string) (string, error) {
	return p.ask(&survey.Input{Message: msg})
}

func (p *prompter) password(msg string) (string, error) {
	return p.ask(&survey.Password{Message: msg})
}

func (p *prompter) ask(q survey.Prompt) (string, error) {
	var answer string
	if err := askOne(q, &answer, p.opts...); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, terminal.InterruptErr) {
			return "", errAborted
		}
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

type stdioReader struct{ io.Reader }

func (stdioReader) Fd() uintptr { return 0 }

type stdioWriter struct{ io.Writer }

func (stdioWriter) Fd() uintptr { return 1 }

func fileReader(r io.Reader) terminal.FileReader {
	if f, ok := r.(terminal.FileReader); ok {
		return f
	}
	return stdioReader{r}
}

func fileWriter(w io.Writer) terminal.FileWriter {
	if f, ok := w.(terminal.FileWriter); ok {
		return f
	}
	return stdioWriter{w}
}
