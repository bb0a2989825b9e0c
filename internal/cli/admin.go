package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/internal/services"
)

const taskTimeout = 5 * time.Minute

// NewCreateAdminCommand creates the create-admin command.
func NewCreateAdminCommand(rootOpts *RootOptions) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a back office account",
		Long: `Create an account for the /admin pages.

Example:
  buooy create-admin --username ops --password 's3cret-pass'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), taskTimeout)
			defer cancel()
			svc := services.NewAdminService(repositories.NewStore(a.db.Postgres), a.cfg.Admin, a.log)
			admin, err := svc.CreateAdmin(ctx, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %q created\n", admin.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username (required)")
	cmd.Flags().StringVar(&password, "password", "", "admin password, at least 8 characters (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// NewDeactivateExpiredCommand runs the party expiry job once.
func NewDeactivateExpiredCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate-expired",
		Short: "Close every party whose gathering time has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), taskTimeout)
			defer cancel()
			parties := services.NewPartyService(repositories.NewStore(a.db.Postgres), a.log, a.cfg.Location())
			n, err := parties.DeactivateExpired(ctx)
			if err != nil {
				return err
			}
			a.log.Info("expired parties deactivated", zap.Int64("count", n))
			fmt.Fprintf(cmd.OutOrStdout(), "%d parties deactivated\n", n)
			return nil
		},
	}
}
