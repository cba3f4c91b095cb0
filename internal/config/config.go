// Package config loads the session agent configuration from the environment
// and an optional .env file using Viper.
package config

import (
	"errors"

	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	RefreshConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetAPIBaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// values mirrors the environment keys. Getters live next to the concern they serve.
type values struct {
	Port           string  `mapstructure:"PORT"`
	AppName        string  `mapstructure:"APP_NAME"`
	Env            string  `mapstructure:"ENV"`
	DataFolder     string  `mapstructure:"FOLDER"`
	APIBaseURL     string  `mapstructure:"API_BASE_URL"`
	OIDCIssuer     string  `mapstructure:"OIDC_ISSUER"`
	TokenURL       string  `mapstructure:"TOKEN_URL"`
	RevokeURL      string  `mapstructure:"REVOKE_URL"`
	ClientID       string  `mapstructure:"CLIENT_ID"`
	ClientSecret   string  `mapstructure:"CLIENT_SECRET"`
	Scopes         string  `mapstructure:"SCOPES"`
	StorageKey     string  `mapstructure:"STORAGE_KEY"`
	RefreshEvery   string  `mapstructure:"REFRESH_INTERVAL"`
	RefreshFrac    float64 `mapstructure:"REFRESH_FRACTION"`
	RefreshMin     string  `mapstructure:"REFRESH_MIN_DELAY"`
	AllowedOrigins string  `mapstructure:"ALLOWED_ORIGINS"`
}

type mainConfig struct {
	values
}

var _ Config = (*mainConfig)(nil)

// Load reads .env (if present), then builds Config from the environment.
// Env vars override .env. A missing .env is ignored.
func Load() (Config, error) {
	return load(".env")
}

func load(envFile string) (Config, error) {
	v := viper.New()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // ignore ErrConfigFileNotFound
	}

	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_NAME", "Wellness Session")
	v.SetDefault("ENV", "DEV")
	v.SetDefault("FOLDER", "./data")
	v.SetDefault("API_BASE_URL", "http://localhost:9000")
	v.SetDefault("OIDC_ISSUER", "")
	v.SetDefault("TOKEN_URL", "http://localhost:9000/oauth2/token")
	v.SetDefault("REVOKE_URL", "")
	v.SetDefault("CLIENT_ID", "web-client")
	v.SetDefault("CLIENT_SECRET", "")
	v.SetDefault("SCOPES", "openid profile email offline_access")
	v.SetDefault("STORAGE_KEY", "")
	v.SetDefault("REFRESH_INTERVAL", "15m")
	v.SetDefault("REFRESH_FRACTION", 0.5)
	v.SetDefault("REFRESH_MIN_DELAY", "1s")
	v.SetDefault("ALLOWED_ORIGINS", "")

	var c mainConfig
	if err := v.Unmarshal(&c.values); err != nil {
		return nil, err
	}

	if c.ClientID == "" {
		return nil, errors.New("config: CLIENT_ID must be set")
	}
	if c.OIDCIssuer == "" && c.TokenURL == "" {
		return nil, errors.New("config: one of OIDC_ISSUER or TOKEN_URL must be set")
	}
	if c.RefreshFrac <= 0 || c.RefreshFrac >= 1 {
		return nil, errors.New("config: REFRESH_FRACTION must be between 0 and 1")
	}

	return &c, nil
}
