package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from the working directory when one exists.
// Missing files are fine; credentials usually arrive via the environment in
// CI and via .env on developer machines. Existing environment variables are
// never overwritten.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load()
}

// HasCredentials reports whether both credential halves are resolvable from
// the config (after env precedence was applied).
func (c *Config) HasCredentials() bool {
	return c.Auth.Email != "" && c.Auth.Password != ""
}
