package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted session",
	Long: `Show whether a session is persisted in the data folder and when its access
token expires. Tokens are never printed.`,
	RunE: runStatus,
}

// StatusReport describes the persisted session without exposing the tokens
type StatusReport struct {
	Authenticated   bool       `json:"authenticated"`
	HasRefreshToken bool       `json:"has_refresh_token"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Expired         bool       `json:"expired"`
	Storage         string     `json:"storage"`
	Error           string     `json:"error,omitempty"`
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}

	report := StatusReport{Storage: repo.Path()}
	persisted, err := repo.Load()
	if err != nil {
		report.Error = err.Error()
	}
	report.Authenticated = persisted.IsAuthenticated()
	report.HasRefreshToken = persisted.RefreshToken != ""
	if exp, err := session.ExpiryOf(persisted.AccessToken); err == nil {
		report.ExpiresAt = utils.Ptr(exp)
		report.Expired = !exp.After(time.Now())
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(out, "Storage:        %s\n", report.Storage)
	if report.Error != "" {
		fmt.Fprintf(out, "Error:          %s\n", report.Error)
	}
	if !report.Authenticated {
		fmt.Fprintln(out, "Session:        signed out")
		return nil
	}
	fmt.Fprintln(out, "Session:        signed in")
	switch {
	case report.ExpiresAt == nil:
		fmt.Fprintln(out, "Access token:   expiry unknown")
	case report.Expired:
		fmt.Fprintf(out, "Access token:   expired %s (will refresh on next use)\n", report.ExpiresAt.Format(time.RFC3339))
	default:
		expiresAt := utils.Value(report.ExpiresAt)
		fmt.Fprintf(out, "Access token:   expires %s (in %s)\n", expiresAt.Format(time.RFC3339), time.Until(expiresAt).Round(time.Second))
	}
	return nil
}
