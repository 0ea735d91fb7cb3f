package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"global-menu/pkg/core"
)

type fileConfig struct {
	SelfID        string `toml:"self_id"`
	Display       string `toml:"display"`
	SocketPath    string `toml:"socket_path"`
	Notify        bool   `toml:"notify"`
	NotifyCommand string `toml:"notify_command"`
	CheckBus      bool   `toml:"check_bus"`
	LogFile       string `toml:"log_file"`
	History       bool   `toml:"history"`
	HistoryPath   string `toml:"history_path"`
}

// LoadFromFile overlays the keys defined in a TOML file onto c.
func (c *Config) LoadFromFile(path string) error {
	c.log.Debug("Loading configuration from file", "path", path)

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		c.log.Error("Failed to parse config file", err, "path", path)
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		c.log.Warn("Unknown config keys ignored", "keys", fmt.Sprint(undecoded))
	}

	// self_id may be set to "" on purpose to disable the filter
	if meta.IsDefined("self_id") {
		c.selfID = strings.TrimSpace(raw.SelfID)
	}
	if meta.IsDefined("display") {
		c.display = strings.TrimSpace(raw.Display)
	}
	if meta.IsDefined("socket_path") {
		if p := strings.TrimSpace(raw.SocketPath); p != "" {
			c.socketPath = expandHome(p)
		}
	}
	if meta.IsDefined("notify") {
		c.notify = raw.Notify
	}
	if meta.IsDefined("notify_command") {
		c.notifyCommand = strings.TrimSpace(raw.NotifyCommand)
	}
	if meta.IsDefined("check_bus") {
		c.checkBus = raw.CheckBus
	}
	if meta.IsDefined("log_file") {
		c.logFile = expandHome(strings.TrimSpace(raw.LogFile))
	}
	if meta.IsDefined("history") {
		c.history = raw.History
	}
	if meta.IsDefined("history_path") {
		c.historyPath = expandHome(strings.TrimSpace(raw.HistoryPath))
	}

	c.path = path
	c.log.Debug("Config file parsed successfully", "defined_keys", len(meta.Keys()))
	return nil
}

// WriteFile stores c as TOML at path.
func (c *Config) WriteFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c.toFile()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

func (c *Config) toFile() fileConfig {
	return fileConfig{
		SelfID:        c.selfID,
		Display:       c.display,
		SocketPath:    c.socketPath,
		Notify:        c.notify,
		NotifyCommand: c.notifyCommand,
		CheckBus:      c.checkBus,
		LogFile:       c.logFile,
		History:       c.history,
		HistoryPath:   c.historyPath,
	}
}

// loadConfigFromPath loads the configuration from a file on top of the defaults.
func loadConfigFromPath(path string, log core.Logger) (*Config, error) {
	config := DefaultConfig(log)
	if err := config.LoadFromFile(path); err != nil {
		return nil, err
	}
	return config, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}
