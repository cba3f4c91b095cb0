package config

import "fmt"

var _ EnvConfig = (*mainConfig)(nil)

func (c *mainConfig) GetPort() string {
	port := c.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (c *mainConfig) GetAppName() string {
	return c.AppName
}

func (c *mainConfig) GetDataFolder() string {
	return c.DataFolder
}

// GetAPIBaseURL returns the base URL of the remote REST API (packages, gifts, mood tracking, chat)
func (c *mainConfig) GetAPIBaseURL() string {
	return c.APIBaseURL
}

func (c *mainConfig) GetEnv() string {
	if c.Env == "" {
		return "DEV"
	}
	return c.Env
}
