// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DefaultConfigDir returns the directory holding the cardsage config file.
func DefaultConfigDir() string {
	return ExpandPath("~/.config/cardsage")
}

// DefaultCatalogPath returns the default location of the card catalog
// database.
func DefaultCatalogPath() string {
	return ExpandPath("~/.local/share/cardsage/catalog.db")
}

// DefaultTokenPath returns the default location of the cached OAuth token
// used by the sheets exporter.
func DefaultTokenPath() string {
	return ExpandPath("~/.config/cardsage/sheets-token.json")
}
