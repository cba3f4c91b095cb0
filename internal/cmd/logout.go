package cmd

import (
	"fmt"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/refresh"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var logoutRevoke bool

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the persisted session",
	Long: `Remove the persisted tokens from the data folder. With --revoke the refresh token
is revoked at the backend first. A running serve process keeps its in-memory session
until it is signed out through /auth/logout.`,
	RunE: runLogout,
}

func init() {
	logoutCmd.Flags().BoolVar(&logoutRevoke, "revoke", false, "revoke the refresh token at the backend first")
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}

	if logoutRevoke {
		if persisted, err := repo.Load(); err == nil && persisted.RefreshToken != "" {
			agent, err := refresh.NewFromConfig(cmd.Context(), cfg, refresh.WithLogger(zerolog.Nop()))
			if err != nil {
				return err
			}
			if err := agent.Revoke(cmd.Context(), persisted.RefreshToken, "refresh_token"); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}
		}
	}

	if err := repo.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}
