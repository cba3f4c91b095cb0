package config

type SecurityConfig interface {
	GetStorageKey() string
	GetStrictTransport() bool
}

var _ SecurityConfig = (*mainConfig)(nil)

// GetStorageKey returns the passphrase used to seal persisted tokens. Empty stores them in the clear.
func (c *mainConfig) GetStorageKey() string {
	return c.StorageKey
}

// GetStrictTransport reports whether responses should carry HSTS. Off in DEV.
func (c *mainConfig) GetStrictTransport() bool {
	return c.GetEnv() != "DEV"
}
