package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/session/filerepo"
	"github.com/jrsteele09/go-auth-session/session/sessionfakes"
	"github.com/stretchr/testify/require"
)

func TestRootSubcommands(t *testing.T) {
	found := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"serve", "status", "logout"} {
		require.True(t, found[name], "subcommand %q not registered", name)
	}
	require.NotNil(t, statusCmd.Flags().Lookup("json"))
	require.NotNil(t, logoutCmd.Flags().Lookup("revoke"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

func persistSession(t *testing.T, s session.Session) string {
	t.Helper()
	folder := t.TempDir()
	t.Setenv("FOLDER", folder)
	t.Setenv("STORAGE_KEY", "test-passphrase")

	repo, err := filerepo.New(folder, filerepo.WithPassphrase("test-passphrase"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(s))
	return folder
}

func TestStatus(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := sessionfakes.AccessToken(exp)
	persistSession(t, session.Session{AccessToken: access, RefreshToken: "refresh-1"})

	t.Run("text", func(t *testing.T) {
		statusJSON = false
		var out bytes.Buffer
		statusCmd.SetOut(&out)
		require.NoError(t, runStatus(statusCmd, nil))

		require.Contains(t, out.String(), "signed in")
		require.Contains(t, out.String(), "expires")
		require.NotContains(t, out.String(), access)
		require.NotContains(t, out.String(), "refresh-1")
	})

	t.Run("json", func(t *testing.T) {
		statusJSON = true
		defer func() { statusJSON = false }()
		var out bytes.Buffer
		statusCmd.SetOut(&out)
		require.NoError(t, runStatus(statusCmd, nil))

		var report StatusReport
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		require.True(t, report.Authenticated)
		require.True(t, report.HasRefreshToken)
		require.False(t, report.Expired)
		require.NotNil(t, report.ExpiresAt)
		require.True(t, exp.Equal(*report.ExpiresAt))
	})
}

func TestStatus_SignedOut(t *testing.T) {
	t.Setenv("FOLDER", t.TempDir())
	statusJSON = false

	var out bytes.Buffer
	statusCmd.SetOut(&out)
	require.NoError(t, runStatus(statusCmd, nil))
	require.Contains(t, out.String(), "signed out")
}

func TestLogout(t *testing.T) {
	folder := persistSession(t, session.Session{AccessToken: sessionfakes.AccessToken(time.Now().Add(time.Hour)), RefreshToken: "refresh-1"})
	logoutRevoke = false

	var out bytes.Buffer
	logoutCmd.SetOut(&out)
	require.NoError(t, runLogout(logoutCmd, nil))
	require.Contains(t, out.String(), "Signed out")

	repo, err := filerepo.New(folder, filerepo.WithPassphrase("test-passphrase"))
	require.NoError(t, err)
	persisted, err := repo.Load()
	require.NoError(t, err)
	require.False(t, persisted.IsAuthenticated())
}

func TestRefreshPolicy(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "10m")
	t.Setenv("REFRESH_FRACTION", "0.75")
	t.Setenv("REFRESH_MIN_DELAY", "2s")

	cfg, err := config.Load()
	require.NoError(t, err)
	policy := refreshPolicy(cfg)
	require.Equal(t, 10*time.Minute, policy.Interval)
	require.Equal(t, 0.75, policy.Fraction)
	require.Equal(t, 2*time.Second, policy.MinDelay)
}
