package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads the given .env files into c.DotEnv without touching the
// process environment. Missing files are skipped; earlier paths win over
// later ones for the same variable.
func (c *Config) LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat env file: %w", err)
		}
		vars, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		for k, v := range vars {
			if _, ok := c.DotEnv[k]; !ok {
				c.DotEnv[k] = v
			}
		}
	}
	return nil
}

// LookupEnv returns the value of an environment variable, consulting the
// process environment first and the loaded .env files second.
func (c *Config) LookupEnv(name string) (string, bool) {
	if v, ok := os.LookupEnv(name); ok {
		return v, true
	}
	v, ok := c.DotEnv[name]
	return v, ok
}
