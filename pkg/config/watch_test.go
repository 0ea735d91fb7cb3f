package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"global-menu/pkg/core"
)

func startWatcher(t *testing.T, path string) <-chan *Config {
	t.Helper()
	w, err := NewWatcher(path, core.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(cfg *Config) { changes <- cfg })
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		assert.NoError(t, w.Close())
	})
	return changes
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, `self_id = "first"`)
	changes := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte(`self_id = "second"`), 0644))

	select {
	case cfg := <-changes:
		assert.Equal(t, "second", cfg.GetSelfID())
		assert.Equal(t, path, cfg.Path())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatcherReloadsReplacedFile(t *testing.T) {
	path := writeConfig(t, `self_id = "first"`)
	changes := startWatcher(t, path)

	tmp := filepath.Join(filepath.Dir(path), "config.toml.new")
	require.NoError(t, os.WriteFile(tmp, []byte(`notify = true`), 0644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case cfg := <-changes:
		assert.True(t, cfg.NotifyEnabled())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after rename")
	}
}

func TestWatcherSkipsBrokenFile(t *testing.T) {
	path := writeConfig(t, `self_id = "first"`)
	changes := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte(`self_id = `), 0644))
	select {
	case cfg := <-changes:
		t.Fatalf("unexpected reload with self_id %q", cfg.GetSelfID())
	case <-time.After(3 * reloadDelay):
	}

	require.NoError(t, os.WriteFile(path, []byte(`self_id = "fixed"`), 0644))
	select {
	case cfg := <-changes:
		assert.Equal(t, "fixed", cfg.GetSelfID())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after fix")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	path := writeConfig(t, `self_id = "first"`)
	changes := startWatcher(t, path)

	other := filepath.Join(filepath.Dir(path), "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("hello"), 0644))

	select {
	case <-changes:
		t.Fatal("reload triggered by an unrelated file")
	case <-time.After(3 * reloadDelay):
	}
}
