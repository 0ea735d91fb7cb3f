package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"global-menu/internal/models"
	"global-menu/pkg/core"
)

type DB struct {
	db  *sql.DB
	log core.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS activations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp DATETIME NOT NULL,
    app_id TEXT NOT NULL,
    menu_kind TEXT NOT NULL,
    menu TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS activations_timestamp ON activations (timestamp);
`

// DefaultPath returns the history database location under the user's data
// directory.
func DefaultPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "global-menu", "history.db"), nil
}

// Open opens or creates the history database at path. An empty path uses
// DefaultPath.
func Open(path string, log core.Logger) (*DB, error) {
	if log == nil {
		log = core.Nop()
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Debug("History database opened", "path", path)
	return &DB{db: db, log: log}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) AddActivation(a models.Activation) error {
	query := `
		INSERT INTO activations (timestamp, app_id, menu_kind, menu)
		VALUES (?, ?, ?, ?)
	`

	_, err := d.db.Exec(query, a.Timestamp.UTC(), a.AppID, a.MenuKind, a.Menu)
	if err != nil {
		return fmt.Errorf("failed to insert activation: %w", err)
	}

	return nil
}

// Recent returns up to limit activations, newest first.
func (d *DB) Recent(limit int) ([]models.Activation, error) {
	d.log.Debug("Retrieving activations from database", "limit", limit)

	query := `
        SELECT timestamp, app_id, menu_kind, menu
        FROM activations
        ORDER BY timestamp DESC, id DESC
        LIMIT ?
    `

	rows, err := d.db.Query(query, limit)
	if err != nil {
		d.log.Error("Failed to query activations", err)
		return nil, fmt.Errorf("failed to query activations: %w", err)
	}
	defer rows.Close()

	var activations []models.Activation
	for rows.Next() {
		var a models.Activation
		if err := rows.Scan(&a.Timestamp, &a.AppID, &a.MenuKind, &a.Menu); err != nil {
			d.log.Error("Failed to scan activation", err)
			return nil, fmt.Errorf("failed to scan activation: %w", err)
		}
		activations = append(activations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activations: %w", err)
	}

	d.log.Debug("Total activations retrieved", "count", len(activations))
	return activations, nil
}

// Cleanup drops activations older than the given age.
func (d *DB) Cleanup(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan).UTC()
	res, err := d.db.Exec("DELETE FROM activations WHERE timestamp < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old activations: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		d.log.Info("Removed old activations", "count", n)
	}
	return nil
}
