package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"global-menu/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecentIsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, app := range []string{"foot", "firefox", "org.gnome.TextEditor"} {
		require.NoError(t, db.AddActivation(models.Activation{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			AppID:     app,
			MenuKind:  "none",
			Menu:      "no menu",
		}))
	}

	got, err := db.Recent(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "org.gnome.TextEditor", got[0].AppID)
	assert.Equal(t, "firefox", got[1].AppID)
	assert.True(t, got[0].Timestamp.Equal(base.Add(2*time.Minute)))
}

func TestRecentOnEmptyDatabase(t *testing.T) {
	got, err := openTestDB(t).Recent(10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCleanupDropsOldEntries(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	require.NoError(t, db.AddActivation(models.Activation{Timestamp: now.Add(-48 * time.Hour), AppID: "old", MenuKind: "none"}))
	require.NoError(t, db.AddActivation(models.Activation{Timestamp: now, AppID: "new", MenuKind: "kde", Menu: "dbusmenu :1.9/MenuBar/1"}))

	require.NoError(t, db.Cleanup(24*time.Hour))

	got, err := db.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].AppID)
	assert.Equal(t, "dbusmenu :1.9/MenuBar/1", got[0].Menu)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/data/global-menu/history.db", p)
}
