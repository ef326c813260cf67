package db

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
		`CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL,
			cpu_pct REAL NOT NULL,
			ram_pct REAL NOT NULL,
			disk_pct REAL NOT NULL,
			net_sent_mb REAL NOT NULL,
			net_recv_mb REAL NOT NULL,
			cpu_temp_c REAL
		);`,
		`CREATE TABLE IF NOT EXISTS recipients (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			email_alerts INTEGER NOT NULL DEFAULT 0,
			telegram_chat_id TEXT NOT NULL DEFAULT '',
			telegram_alerts INTEGER NOT NULL DEFAULT 0,
			last_alert_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			cpu_temp_limit REAL NOT NULL DEFAULT 75,
			alert_cooldown_seconds INTEGER NOT NULL DEFAULT 3600
		);`,
		`CREATE TABLE IF NOT EXISTS notification_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recipient_id INTEGER NOT NULL,
			channel TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			last_error TEXT,
			sent_ts DATETIME,
			FOREIGN KEY(recipient_id) REFERENCES recipients(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_notification_events_recipient ON notification_events(recipient_id);`,
		`INSERT INTO settings (id) SELECT 1 WHERE NOT EXISTS (SELECT 1 FROM settings WHERE id = 1);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	return nil
}
