package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// To enable testing without polluting the user's home directory, the state
// directory lookup is a variable the test suite can override.
var stateDirectory = StateDirectory

// SetTestPaths points the file system backend at dir.
// This should only be used in tests.
func SetTestPaths(dir string) {
	stateDirectory = func() (string, error) { return dir, nil }
}

// ResetPaths restores the default state directory.
// This should only be used in tests.
func ResetPaths() {
	stateDirectory = StateDirectory
}

// StateDirectory returns the directory where state files are stored:
// {UserConfigDir}/storefront/state.
func StateDirectory() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "storefront", "state"), nil
}

// StateFilePath returns the state file of a profile inside dir.
// File naming: {profile}.state.json
func StateFilePath(dir, profile string) string {
	return filepath.Join(dir, profile+".state.json")
}

// StateLockFilePath returns the lock file guarding a profile's state file.
// File naming: {profile}.state.lock
func StateLockFilePath(dir, profile string) string {
	return filepath.Join(dir, profile+".state.lock")
}
