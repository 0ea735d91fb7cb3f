package config

import (
	"global-menu/pkg/core"
)

// Config holds the application configuration.
type Config struct {
	// Configurable via TOML file (private fields to enforce immutability)
	selfID        string
	display       string
	socketPath    string
	notify        bool
	notifyCommand string
	checkBus      bool
	logFile       string
	history       bool
	historyPath   string

	// Internal fields
	path string
	log  core.Logger
}

// New creates a new Config instance with the provided logger.
func New(log core.Logger) *Config {
	if log == nil {
		log = core.Nop()
	}
	return &Config{
		log: log,
	}
}

// GetSelfID returns our own app id; activations of it are ignored.
func (c *Config) GetSelfID() string {
	return c.selfID
}

// GetDisplay returns the Wayland display name, empty for the environment default.
func (c *Config) GetDisplay() string {
	return c.display
}

// GetSocketPath returns the path of the IPC socket.
func (c *Config) GetSocketPath() string {
	return c.socketPath
}

// NotifyEnabled reports whether active app changes raise a desktop notification.
func (c *Config) NotifyEnabled() bool {
	return c.notify
}

// GetNotifyCommand returns the notify command.
func (c *Config) GetNotifyCommand() string {
	return c.notifyCommand
}

// CheckBus reports whether menu bus names are verified on the session bus.
func (c *Config) CheckBus() bool {
	return c.checkBus
}

// GetLogFile returns the log file path; empty means the default location.
func (c *Config) GetLogFile() string {
	return c.logFile
}

// HistoryEnabled reports whether activations are recorded.
func (c *Config) HistoryEnabled() bool {
	return c.history
}

// GetHistoryPath returns the history database path; empty means the default location.
func (c *Config) GetHistoryPath() string {
	return c.historyPath
}

// Path returns the file the configuration was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}
