package config

import (
	"fmt"
	"os"
	"path/filepath"

	"global-menu/pkg/core"
)

const (
	// DefaultSelfID is the app id the daemon announces for its own windows.
	DefaultSelfID = "global-menu"
	appDirName    = "global-menu"
	socketName    = "global-menu.sock"
)

// DefaultConfig creates a default configuration.
func DefaultConfig(log core.Logger) *Config {
	if log == nil {
		log = core.Nop()
	}
	log.Debug("Creating default configuration")

	config := &Config{
		selfID:        DefaultSelfID,
		socketPath:    DefaultSocketPath(),
		notify:        false,
		notifyCommand: "",
		checkBus:      true,
		history:       true,
		log:           log,
	}

	log.Info("Created default configuration",
		"self_id", config.selfID,
		"socket_path", config.socketPath)

	return config
}

// DefaultSocketPath places the IPC socket in the runtime directory, falling
// back to a per-user name in the temp directory.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, socketName)
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("global-menu-%d.sock", os.Getuid()))
}
