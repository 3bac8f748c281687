package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/taskdeck/internal/app"
	"github.com/shandysiswandi/taskdeck/internal/identity/outbound/db"
	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/pgxcasbin"
	"github.com/spf13/cobra"
)

// EnvConfirmPurge confirms a purge without the flag.
const EnvConfirmPurge = "CONFIRM_USER_PURGE"

// purgeFunc deletes every user described by cfg and returns how many went.
type purgeFunc func(ctx context.Context, cfg config.Config) (int64, error)

// NewUsersCommand creates the user maintenance commands.
func NewUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users directly in the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newPurgeCommand(purgeUsers))

	return cmd
}

func newPurgeCommand(purge purgeFunc) *cobra.Command {
	var (
		configPath string
		confirm    bool
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every user and revoke admin grants",
		Long: `Delete every user so the next start offers the first-run setup again.
Requires --confirm or ` + EnvConfirmPurge + `=1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm && !confirmedByEnv() {
				return &ExitError{Code: 2, Msg: "refusing to purge users without --confirm or " + EnvConfirmPurge + "=1"}
			}

			if configPath == "" {
				configPath = app.ConfigPath()
			}
			cfg, err := config.NewViper(configPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", configPath, err)
			}
			defer cfg.Close()

			n, err := purge(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d user(s).\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file, defaults to CONFIG_PATH")
	cmd.Flags().BoolVarP(&confirm, "confirm", "y", false, "confirm the purge")

	return cmd
}

func confirmedByEnv() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvConfirmPurge))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func purgeUsers(ctx context.Context, cfg config.Config) (int64, error) {
	pool, err := pgxpool.New(ctx, cfg.GetString("database.url"))
	if err != nil {
		return 0, fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	n, err := db.NewDB(pool, instrument.NewNoop()).DeleteAllUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete users: %w", err)
	}

	if err := pgxcasbin.NewAdapter(pool).RemoveFilteredPolicy("g", "g", 1, "admin"); err != nil {
		return n, fmt.Errorf("revoke admin grants: %w", err)
	}

	return n, nil
}
