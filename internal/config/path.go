// Package config turns viper settings into typed configuration for each
// component.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading ~ and $VAR references in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return os.ExpandEnv(path)
}

// DefaultDatabasePath is where the database lives when database.path is
// unset.
func DefaultDatabasePath() string {
	return ExpandPath("~/.local/share/finsight/finsight.db")
}

// DefaultConfigDir holds config.yaml and saved tokens.
func DefaultConfigDir() string {
	return ExpandPath("~/.config/finsight")
}
