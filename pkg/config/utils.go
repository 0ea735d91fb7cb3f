package config

import (
	"fmt"
	"os"
	"path/filepath"

	"global-menu/pkg/core"
)

// initializeConfig creates or loads the configuration.
func initializeConfig(providedPath string, defaultPath string, log core.Logger) (*Config, error) {
	// Try provided path first if specified
	if providedPath != "" {
		config, err := loadConfigFromPath(providedPath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from provided path: %w", err)
		}
		return config, nil
	}

	// Try default path, create if doesn't exist
	if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
		config := DefaultConfig(log)
		if err := config.WriteFile(defaultPath); err != nil {
			log.Warn("Failed to write default config", "path", defaultPath, "error", err.Error())
		} else {
			log.Info("Wrote default configuration", "path", defaultPath)
			config.path = defaultPath
		}
		return config, nil
	}

	config, err := loadConfigFromPath(defaultPath, log)
	if err != nil {
		log.Error("Falling back to default configuration", err, "path", defaultPath)
		return DefaultConfig(log), nil
	}
	return config, nil
}

// FindConfig locates and initializes the configuration. An empty
// providedPath uses $XDG_CONFIG_HOME/global-menu/config.toml.
func FindConfig(providedPath string, log core.Logger) (*Config, error) {
	if log == nil {
		log = core.Nop()
	}
	log.Info("Looking for configuration", "provided_path", providedPath)

	if providedPath != "" {
		return initializeConfig(providedPath, "", log)
	}

	// Get user config directory
	homeConfigDir, err := os.UserConfigDir()
	if err != nil {
		log.Error("Failed to get user config directory", err)
		return nil, err
	}

	defaultConfigDir := filepath.Join(homeConfigDir, appDirName)
	defaultConfigPath := filepath.Join(defaultConfigDir, "config.toml")

	log.Debug("Configuration paths",
		"config_dir", defaultConfigDir,
		"config_path", defaultConfigPath)

	log.Debug("Ensuring directory exists", "path", defaultConfigDir)
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		log.Error("Failed to create directory", err, "path", defaultConfigDir)
		return nil, err
	}

	return initializeConfig("", defaultConfigPath, log)
}
