package config

import "strings"

// OAuthConfig describes the token endpoints the session agent talks to
type OAuthConfig interface {
	GetOIDCIssuer() string
	GetTokenURL() string
	GetRevokeURL() string
	GetClientID() string
	GetClientSecret() string
	GetScopes() []string
}

var _ OAuthConfig = (*mainConfig)(nil)

// GetOIDCIssuer returns the issuer used for endpoint discovery. Empty disables discovery.
func (c *mainConfig) GetOIDCIssuer() string {
	return c.OIDCIssuer
}

func (c *mainConfig) GetTokenURL() string {
	return c.TokenURL
}

func (c *mainConfig) GetRevokeURL() string {
	return c.RevokeURL
}

func (c *mainConfig) GetClientID() string {
	return c.ClientID
}

func (c *mainConfig) GetClientSecret() string {
	return c.ClientSecret
}

func (c *mainConfig) GetScopes() []string {
	return strings.Fields(c.Scopes)
}
