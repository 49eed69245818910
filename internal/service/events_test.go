// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/stretchr/testify/require"

	"github.com/whisperwall/whisperwall/internal/model"
	"github.com/whisperwall/whisperwall/internal/store"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

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
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLogAuthEvent(t *testing.T) {
	db := testDB(t)
	svc := NewEventService(db)
	ctx := context.Background()

	adminID := int64(7)
	err := svc.LogAuthEvent(ctx, model.EventLevelWarning, "Login failed: invalid password",
		&adminID, "203.0.113.9", map[string]any{"username": "admin"})
	require.NoError(t, err)

	events, err := store.New(db).ListRecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	require.Equal(t, model.EventLevelWarning, e.Level)
	require.Equal(t, model.EventCategoryAuth, e.Category)
	require.Equal(t, "Login failed: invalid password", e.Message)
	require.True(t, e.AdminID.Valid)
	require.Equal(t, int64(7), e.AdminID.Int64)
	require.JSONEq(t, `{"username":"admin"}`, e.Metadata)
}

func TestLogEvent_NilOptionals(t *testing.T) {
	db := testDB(t)
	svc := NewEventService(db)
	ctx := context.Background()

	err := svc.LogSystemEvent(ctx, model.EventLevelInfo, "scheduler started", nil, "", nil)
	require.NoError(t, err)

	events, err := store.New(db).ListRecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.False(t, events[0].AdminID.Valid)
	require.Equal(t, "{}", events[0].Metadata)
}
