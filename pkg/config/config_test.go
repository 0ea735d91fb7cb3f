package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"global-menu/pkg/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	cfg := DefaultConfig(core.Nop())
	assert.Equal(t, DefaultSelfID, cfg.GetSelfID())
	assert.Equal(t, "/run/user/1000/global-menu.sock", cfg.GetSocketPath())
	assert.Empty(t, cfg.GetDisplay())
	assert.False(t, cfg.NotifyEnabled())
	assert.True(t, cfg.CheckBus())
	assert.True(t, cfg.HistoryEnabled())
	assert.Empty(t, cfg.GetHistoryPath())
}

func TestDefaultSocketPathWithoutRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	assert.Equal(t, os.TempDir(), filepath.Dir(DefaultSocketPath()))
}

func TestLoadOverlaysDefinedKeys(t *testing.T) {
	path := writeConfig(t, `
display = "wayland-1"
notify = true
check_bus = false
`)

	cfg, err := loadConfigFromPath(path, core.Nop())
	require.NoError(t, err)
	assert.Equal(t, "wayland-1", cfg.GetDisplay())
	assert.True(t, cfg.NotifyEnabled())
	assert.False(t, cfg.CheckBus())
	// untouched keys keep their defaults
	assert.Equal(t, DefaultSelfID, cfg.GetSelfID())
	assert.Equal(t, DefaultSocketPath(), cfg.GetSocketPath())
	assert.Equal(t, path, cfg.Path())
}

func TestEmptySelfIDDisablesFilter(t *testing.T) {
	cfg, err := loadConfigFromPath(writeConfig(t, `self_id = ""`), core.Nop())
	require.NoError(t, err)
	assert.Empty(t, cfg.GetSelfID())
}

func TestEmptySocketPathKeepsDefault(t *testing.T) {
	cfg, err := loadConfigFromPath(writeConfig(t, `socket_path = "  "`), core.Nop())
	require.NoError(t, err)
	assert.Equal(t, DefaultSocketPath(), cfg.GetSocketPath())
}

func TestHomeIsExpanded(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := loadConfigFromPath(writeConfig(t, `log_file = "~/menu.log"`), core.Nop())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "menu.log"), cfg.GetLogFile())
}

func TestLoadRejectsInvalidTOML(t *testing.T) {
	_, err := loadConfigFromPath(writeConfig(t, `notify = "yes`), core.Nop())
	assert.Error(t, err)
}

func TestWriteFileRoundTrip(t *testing.T) {
	cfg := New(nil)
	cfg.selfID = "me"
	cfg.display = "wayland-2"
	cfg.socketPath = "/tmp/menu.sock"
	cfg.notify = true
	cfg.notifyCommand = "notify-me"
	cfg.checkBus = true
	cfg.logFile = "/tmp/menu.log"
	cfg.historyPath = "/tmp/history.db"

	path := filepath.Join(t.TempDir(), "out.toml")
	require.NoError(t, cfg.WriteFile(path))

	loaded, err := loadConfigFromPath(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.toFile(), loaded.toFile())
}

func TestFindConfigWritesDefaultsOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := FindConfig("", core.Nop())
	require.NoError(t, err)

	path := filepath.Join(dir, "global-menu", "config.toml")
	assert.FileExists(t, path)
	assert.Equal(t, path, cfg.Path())

	// the written file loads back to the same settings
	again, err := FindConfig("", core.Nop())
	require.NoError(t, err)
	assert.Equal(t, cfg.toFile(), again.toFile())
}

func TestFindConfigWithProvidedPath(t *testing.T) {
	path := writeConfig(t, `self_id = "custom"`)

	cfg, err := FindConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.GetSelfID())

	_, err = FindConfig(filepath.Join(t.TempDir(), "missing.toml"), nil)
	assert.Error(t, err)
}

func TestFindConfigFallsBackOnBrokenDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "global-menu"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "global-menu", "config.toml"), []byte("[[["), 0644))

	cfg, err := FindConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSelfID, cfg.GetSelfID())
}
