// Package store persists the alerting configuration and the append-only
// alert history in a local sqlite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL; PRAGMA temp_store=MEMORY;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts_config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			cpu_limit REAL NOT NULL,
			mem_limit REAL NOT NULL,
			slack_webhook TEXT NOT NULL DEFAULT '',
			slack_enabled INTEGER NOT NULL DEFAULT 0,
			discord_webhook TEXT NOT NULL DEFAULT '',
			discord_enabled INTEGER NOT NULL DEFAULT 0,
			telegram_bot_token TEXT NOT NULL DEFAULT '',
			telegram_chat_id TEXT NOT NULL DEFAULT '',
			telegram_enabled INTEGER NOT NULL DEFAULT 0,
			generic_webhook TEXT NOT NULL DEFAULT '',
			generic_enabled INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL,
			level TEXT NOT NULL,
			container TEXT NOT NULL,
			message TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(ts DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	// Exactly one config row ever exists.
	_, err := db.Exec(`INSERT INTO alerts_config (id, cpu_limit, mem_limit)
		SELECT 1, 80, 90 WHERE NOT EXISTS (SELECT 1 FROM alerts_config WHERE id = 1)`)
	return err
}
