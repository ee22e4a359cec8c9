// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

// Package sqlite persists the connection attempt log and provider
// health snapshots in a single SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (or creates) the database at dbPath and runs migrations.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite db: %w", err)
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS connection_attempts (
	id            TEXT PRIMARY KEY,
	account_id    TEXT NOT NULL,
	space_id      TEXT NOT NULL DEFAULT '',
	provider      TEXT NOT NULL,
	region        TEXT NOT NULL,
	operation     TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	error_kind    TEXT NOT NULL DEFAULT '',
	error_code    TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	response_ms   INTEGER NOT NULL DEFAULT 0,
	failover      INTEGER NOT NULL DEFAULT 0,
	next_provider TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_account ON connection_attempts(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_attempts_provider ON connection_attempts(provider, region, created_at);

CREATE TABLE IF NOT EXISTS provider_health (
	provider          TEXT NOT NULL,
	region            TEXT NOT NULL,
	status            TEXT NOT NULL,
	error_rate        REAL NOT NULL DEFAULT 0,
	avg_response_ms   REAL NOT NULL DEFAULT 0,
	success_count     INTEGER NOT NULL DEFAULT 0,
	failure_count     INTEGER NOT NULL DEFAULT 0,
	last_success_at   TEXT NOT NULL DEFAULT '',
	last_failure_at   TEXT NOT NULL DEFAULT '',
	last_error        TEXT NOT NULL DEFAULT '',
	window_started_at TEXT NOT NULL DEFAULT '',
	updated_at        TEXT NOT NULL,
	PRIMARY KEY (provider, region)
);
`
	_, err := db.Exec(ddl)
	return err
}

// formatTime serialises a time.Time to RFC3339 with nanosecond precision.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
