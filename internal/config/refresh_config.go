package config

import "time"

// RefreshConfig tunes the proactive refresh cadence
type RefreshConfig interface {
	GetRefreshInterval() time.Duration
	GetRefreshFraction() float64
	GetRefreshMinDelay() time.Duration
}

var _ RefreshConfig = (*mainConfig)(nil)

// GetRefreshInterval parses REFRESH_INTERVAL. Returns 15m if unset or invalid.
func (c *mainConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshEvery)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// GetRefreshFraction is the share of the remaining token lifetime to wait before refreshing
func (c *mainConfig) GetRefreshFraction() float64 {
	return c.RefreshFrac
}

// GetRefreshMinDelay parses REFRESH_MIN_DELAY. Returns 1s if unset or invalid.
func (c *mainConfig) GetRefreshMinDelay() time.Duration {
	d, err := time.ParseDuration(c.RefreshMin)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}
