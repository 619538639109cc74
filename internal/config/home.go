package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables read by assetkeeper. A .env file in the working
// directory may set them.
const (
	EnvHome     = "ASSETKEEPER_HOME"
	EnvLogLevel = "ASSETKEEPER_LOG_LEVEL"
)

// GetHome returns the assetkeeper home directory, creating it if needed.
// Priority order:
//  1. ASSETKEEPER_HOME environment variable (if set)
//  2. <user config dir>/assetkeeper
//  3. ./.assetkeeper in the current working directory
func GetHome() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create home directory: %w", err)
		}
		return home, nil
	}

	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		home := filepath.Join(dir, "assetkeeper")
		if err := os.MkdirAll(home, 0755); err == nil {
			return home, nil
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	home := filepath.Join(cwd, ".assetkeeper")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create home directory: %w", err)
	}
	return home, nil
}
