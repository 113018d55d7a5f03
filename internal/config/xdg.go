package config

import (
	"os"
	"path/filepath"
)

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultCatalogPath is where the run catalog lives unless overridden.
func DefaultCatalogPath() string {
	return filepath.Join(XDGDataHome(), "polychain", "runs.db")
}

// DefaultConfigPath is the config file read when no --config is given.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), "polychain", "config.yaml")
}
