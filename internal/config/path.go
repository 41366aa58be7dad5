package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName     = "drai"
	configFileName = "config.yaml"
)

// ResolvePath picks the config file: an explicit --config path, then
// $XDG_CONFIG_HOME/drai/config.yaml, then ~/.config/drai/config.yaml.
func ResolvePath(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}

	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appDirName, configFileName), nil
}
