package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "STOREFRONT_CONFIG"

// GetConfigPath returns the configuration file path using kubectl-style behavior.
// It first checks the STOREFRONT_CONFIG environment variable, then falls back
// to the default location (~/.storefront/config).
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(EnvConfigPath); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".storefront", "config"), nil
}

// DotEnvPaths returns the .env files consulted by Load, highest priority
// first: ./.env, then .env next to the config file.
func DotEnvPaths() []string {
	paths := []string{".env"}
	if configPath, err := GetConfigPath(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	return paths
}

// EnsureDir creates the directory holding the config file at path.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0700)
}
