package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := load("")
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "./data", c.GetDataFolder())
	require.Equal(t, "web-client", c.GetClientID())
	require.Equal(t, []string{"openid", "profile", "email", "offline_access"}, c.GetScopes())
	require.Equal(t, 15*time.Minute, c.GetRefreshInterval())
	require.Equal(t, 0.5, c.GetRefreshFraction())
	require.Equal(t, time.Second, c.GetRefreshMinDelay())
	require.Empty(t, c.GetAllowedOrigins())
	require.False(t, c.GetStrictTransport())
}

func TestLoad_EnvVarOverride(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("ENV", "PROD")
	t.Setenv("CLIENT_ID", "mobile")
	t.Setenv("REFRESH_INTERVAL", "2m")
	t.Setenv("REFRESH_FRACTION", "0.25")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://www.example.com")

	c, err := load("")
	require.NoError(t, err)

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "mobile", c.GetClientID())
	require.Equal(t, 2*time.Minute, c.GetRefreshInterval())
	require.Equal(t, 0.25, c.GetRefreshFraction())
	require.True(t, c.GetStrictTransport())

	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://app.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://www.example.com"))
	require.False(t, origins.IsAllowedOrigin("https://evil.example.com"))
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("APP_NAME=From File\nFOLDER=/var/lib/session\n"), 0o600))

	c, err := load(envFile)
	require.NoError(t, err)
	require.Equal(t, "From File", c.GetAppName())
	require.Equal(t, "/var/lib/session", c.GetDataFolder())
}

func TestLoad_InvalidDurationsFallBack(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "soon")
	t.Setenv("REFRESH_MIN_DELAY", "-1s")

	c, err := load("")
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, c.GetRefreshInterval())
	require.Equal(t, time.Second, c.GetRefreshMinDelay())
}

func TestLoad_Validation(t *testing.T) {
	t.Run("empty client id", func(t *testing.T) {
		t.Setenv("CLIENT_ID", "")
		_, err := load("")
		require.Error(t, err)
		require.Contains(t, err.Error(), "CLIENT_ID")
	})

	t.Run("no token endpoint", func(t *testing.T) {
		t.Setenv("TOKEN_URL", "")
		t.Setenv("OIDC_ISSUER", "")
		_, err := load("")
		require.Error(t, err)
		require.Contains(t, err.Error(), "TOKEN_URL")
	})

	t.Run("fraction out of range", func(t *testing.T) {
		t.Setenv("REFRESH_FRACTION", "1.5")
		_, err := load("")
		require.Error(t, err)
		require.Contains(t, err.Error(), "REFRESH_FRACTION")
	})
}
