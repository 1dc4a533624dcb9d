package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Exported constants.
const (
	AppName        = "fileknight"
	ConfigFileName = "config.json"
	LogFileName    = "fileknight.log"
)

// DefaultConfigPath returns $XDG_CONFIG_HOME/fileknight/config.json.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// DefaultExportDir returns the user's downloads folder.
func DefaultExportDir() string {
	return xdg.UserDirs.Download
}

// DefaultLogPath returns $XDG_STATE_HOME/fileknight/fileknight.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, AppName, LogFileName)
}
