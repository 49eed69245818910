// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/whisperwall/whisperwall/internal/model"
	"github.com/whisperwall/whisperwall/internal/store"
)

func feedTestDB(t *testing.T) *store.Queries {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE confessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved')),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		t.Fatalf("failed to create confessions table: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return store.New(db)
}

func TestFeedCache_Approved(t *testing.T) {
	queries := feedTestDB(t)
	ctx := context.Background()

	c1, err := queries.CreateConfession(ctx, "first")
	if err != nil {
		t.Fatalf("CreateConfession() error: %v", err)
	}
	if err := queries.ApproveConfession(ctx, c1.ID); err != nil {
		t.Fatalf("ApproveConfession() error: %v", err)
	}
	if _, err := queries.CreateConfession(ctx, "still pending"); err != nil {
		t.Fatalf("CreateConfession() error: %v", err)
	}

	fc := NewFeedCache(NewSimpleMemoryCache(time.Minute), queries)

	feed, err := fc.Approved(ctx)
	if err != nil {
		t.Fatalf("Approved() error: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("got %d confessions, want 1", len(feed))
	}
	if feed[0].Status != model.StatusApproved {
		t.Errorf("status = %q, want %q", feed[0].Status, model.StatusApproved)
	}
	if feed[0].Content != "first" {
		t.Errorf("content = %q, want %q", feed[0].Content, "first")
	}
}

func TestFeedCache_ServesFromCacheUntilInvalidated(t *testing.T) {
	queries := feedTestDB(t)
	ctx := context.Background()

	c1, _ := queries.CreateConfession(ctx, "first")
	_ = queries.ApproveConfession(ctx, c1.ID)

	mem := NewSimpleMemoryCache(time.Minute)
	fc := NewFeedCache(mem, queries)

	if _, err := fc.Approved(ctx); err != nil {
		t.Fatalf("Approved() error: %v", err)
	}

	// Approve a second confession without invalidating; the cached feed
	// must still be served.
	c2, _ := queries.CreateConfession(ctx, "second")
	_ = queries.ApproveConfession(ctx, c2.ID)

	feed, err := fc.Approved(ctx)
	if err != nil {
		t.Fatalf("Approved() error: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("got %d confessions from cache, want 1", len(feed))
	}

	fc.Invalidate(ctx)

	feed, err = fc.Approved(ctx)
	if err != nil {
		t.Fatalf("Approved() after Invalidate() error: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("got %d confessions after invalidation, want 2", len(feed))
	}
}

func TestFeedCache_CorruptEntryFallsBack(t *testing.T) {
	queries := feedTestDB(t)
	ctx := context.Background()

	c1, _ := queries.CreateConfession(ctx, "first")
	_ = queries.ApproveConfession(ctx, c1.ID)

	mem := NewSimpleMemoryCache(time.Minute)
	_ = mem.Set(ctx, "feed:approved", []byte("not json"), 0)

	fc := NewFeedCache(mem, queries)
	feed, err := fc.Approved(ctx)
	if err != nil {
		t.Fatalf("Approved() error: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("got %d confessions, want 1", len(feed))
	}
}
