// Package store persists directory handle tokens and small session settings
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/metrics"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrUnavailable wraps every failure of the underlying database. Callers
// treat it as a cache miss.
var ErrUnavailable = errors.New("store: storage unavailable")

type DB struct {
	conn *sql.DB
}

func NewDB() *DB {
	return &DB{}
}

// Open initializes the database connection and schema
func (d *DB) Open(dbPath string) error {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return unavailable("open", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return unavailable("open", err)
	}
	// A single connection keeps :memory: databases coherent and serializes
	// writers the way the app expects.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		// WAL mode allows simultaneous readers and writers
		"PRAGMA journal_mode=WAL;",
		// Synchronous NORMAL is safe against app crashes, faster than FULL
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return unavailable("open", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS handles (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		token TEXT NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return unavailable("open", err)
	}

	d.conn = db
	debug.Log(debug.STORE, "opened %s", dbPath)
	return nil
}

func (d *DB) Close() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func (d *DB) ready(op string) error {
	if d == nil || d.conn == nil {
		return unavailable(op, errors.New("database not open"))
	}
	return nil
}

// Setting returns the value stored under key. A missing key is ("", false, nil).
func (d *DB) Setting(ctx context.Context, key string) (string, bool, error) {
	if err := d.ready("get_setting"); err != nil {
		return "", false, err
	}
	var value string
	err := d.conn.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get_setting", err)
	}
	return value, true, nil
}

// SetSetting upserts a setting.
func (d *DB) SetSetting(ctx context.Context, key, value string) error {
	if err := d.ready("set_setting"); err != nil {
		return err
	}
	_, err := d.conn.ExecContext(ctx, "INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return unavailable("set_setting", err)
	}
	debug.Log(debug.STORE, "setting %s updated", key)
	return nil
}

// DeleteSettings removes the given keys in one transaction. Missing keys are
// ignored.
func (d *DB) DeleteSettings(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := d.ready("delete_settings"); err != nil {
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	_, err := d.conn.ExecContext(ctx, "DELETE FROM settings WHERE key IN ("+placeholders+")", args...)
	if err != nil {
		return unavailable("delete_settings", err)
	}
	return nil
}

// Settings returns every stored setting.
func (d *DB) Settings(ctx context.Context) (map[string]string, error) {
	if err := d.ready("list_settings"); err != nil {
		return nil, err
	}
	rows, err := d.conn.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, unavailable("list_settings", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err == nil {
			settings[key] = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list_settings", err)
	}
	return settings, nil
}

func unavailable(op string, err error) error {
	metrics.RecordStorageError(op)
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
