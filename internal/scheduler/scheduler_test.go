// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			admin_id INTEGER,
			ip_address TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		t.Fatalf("failed to create events table: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func insertEvent(t *testing.T, db *sql.DB, createdAt time.Time) {
	t.Helper()
	if _, err := db.Exec(
		`INSERT INTO events (message, created_at) VALUES ('event', ?)`, createdAt,
	); err != nil {
		t.Fatalf("failed to insert event: %v", err)
	}
}

func TestPurgeOldEvents(t *testing.T) {
	db := testDB(t)
	s := New(db, testLogger(), 90)

	insertEvent(t, db, time.Now().AddDate(0, 0, -120))
	insertEvent(t, db, time.Now().AddDate(0, 0, -1))

	if err := s.purgeOldEvents(); err != nil {
		t.Fatalf("purgeOldEvents() error: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("events remaining = %d; want 1", count)
	}
}

func TestStartStop(t *testing.T) {
	db := testDB(t)
	s := New(db, testLogger(), 90)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	s.Stop()
}
