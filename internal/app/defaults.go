package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DATALOCKER_CONFIG_PATH: config file location (default: ~/.config/datalocker.toml)
//   - DATALOCKER_HOME: base directory for datalocker data (default: ~/.local/share/datalocker)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking DATALOCKER_CONFIG_PATH
// env var first, then falling back to the default ~/.config/datalocker.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("DATALOCKER_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "datalocker.toml"), nil
}

// getBaseDir returns the base directory for datalocker data, checking
// DATALOCKER_HOME env var first, then falling back to the XDG default
// ~/.local/share/datalocker.
func getBaseDir() (string, error) {
	if path := os.Getenv("DATALOCKER_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "datalocker"), nil
}
