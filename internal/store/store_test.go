// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/whisperwall/whisperwall/internal/model"
)

// testDB creates an in-memory SQLite database with the application schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE confessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved')),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE admins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);

		CREATE TABLE activation_codes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

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
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func TestCreateConfession_DefaultsToPending(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	c, err := q.CreateConfession(ctx, "hello")
	if err != nil {
		t.Fatalf("CreateConfession() error: %v", err)
	}
	if c.Status != model.StatusPending {
		t.Errorf("status = %q, want %q", c.Status, model.StatusPending)
	}

	got, err := q.GetConfessionByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetConfessionByID() error: %v", err)
	}
	if got.Content != "hello" || got.Status != model.StatusPending {
		t.Errorf("got %+v, want pending confession with content %q", got, "hello")
	}
}

func TestListConfessionsByStatus_Ordering(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	insert := func(content string, status string, createdAt time.Time) {
		t.Helper()
		if _, err := db.Exec(
			`INSERT INTO confessions (content, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			content, status, createdAt, createdAt,
		); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	insert("oldest", model.StatusApproved, base)
	insert("newest", model.StatusApproved, base.Add(2*time.Hour))
	insert("tie-first", model.StatusApproved, base.Add(time.Hour))
	insert("tie-second", model.StatusApproved, base.Add(time.Hour))
	insert("pending", model.StatusPending, base.Add(3*time.Hour))

	approved, err := q.ListConfessionsByStatus(ctx, model.StatusApproved)
	if err != nil {
		t.Fatalf("ListConfessionsByStatus() error: %v", err)
	}

	want := []string{"newest", "tie-first", "tie-second", "oldest"}
	if len(approved) != len(want) {
		t.Fatalf("got %d confessions, want %d", len(approved), len(want))
	}
	for i, w := range want {
		if approved[i].Content != w {
			t.Errorf("approved[%d].Content = %q, want %q", i, approved[i].Content, w)
		}
	}

	pending, err := q.ListConfessionsByStatus(ctx, model.StatusPending)
	if err != nil {
		t.Fatalf("ListConfessionsByStatus() error: %v", err)
	}
	if len(pending) != 1 || pending[0].Content != "pending" {
		t.Errorf("pending partition = %+v, want single %q entry", pending, "pending")
	}
}

func TestApproveConfession_Idempotent(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	c, err := q.CreateConfession(ctx, "approve me")
	if err != nil {
		t.Fatalf("CreateConfession() error: %v", err)
	}

	if err := q.ApproveConfession(ctx, c.ID); err != nil {
		t.Fatalf("ApproveConfession() error: %v", err)
	}
	if err := q.ApproveConfession(ctx, c.ID); err != nil {
		t.Fatalf("second ApproveConfession() error: %v", err)
	}

	got, err := q.GetConfessionByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetConfessionByID() error: %v", err)
	}
	if got.Status != model.StatusApproved {
		t.Errorf("status = %q, want %q", got.Status, model.StatusApproved)
	}
}

func TestUpdateConfessionContent_KeepsStatus(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	c, err := q.CreateConfession(ctx, "original")
	if err != nil {
		t.Fatalf("CreateConfession() error: %v", err)
	}
	if err := q.ApproveConfession(ctx, c.ID); err != nil {
		t.Fatalf("ApproveConfession() error: %v", err)
	}

	err = q.UpdateConfessionContent(ctx, UpdateConfessionContentParams{
		Content:   "edited",
		UpdatedAt: time.Now(),
		ID:        c.ID,
	})
	if err != nil {
		t.Fatalf("UpdateConfessionContent() error: %v", err)
	}

	got, err := q.GetConfessionByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetConfessionByID() error: %v", err)
	}
	if got.Content != "edited" {
		t.Errorf("content = %q, want %q", got.Content, "edited")
	}
	if got.Status != model.StatusApproved {
		t.Errorf("status = %q, want %q (edit must not change status)", got.Status, model.StatusApproved)
	}
}

func TestDeleteConfession_AbsentIDIsNoOp(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	if err := q.DeleteConfession(ctx, 9999); err != nil {
		t.Errorf("DeleteConfession() on absent id returned error: %v", err)
	}
}

func TestCreateFirstAdmin_OnlyOnce(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	admin, err := q.CreateFirstAdmin(ctx, CreateFirstAdminParams{
		Username:     "admin",
		PasswordHash: "$argon2id$...",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateFirstAdmin() error: %v", err)
	}
	if admin.ID == 0 {
		t.Error("admin.ID should be set")
	}

	_, err = q.CreateFirstAdmin(ctx, CreateFirstAdminParams{
		Username:     "second",
		PasswordHash: "$argon2id$...",
		CreatedAt:    time.Now(),
	})
	if !errors.Is(err, ErrAdminExists) {
		t.Errorf("second CreateFirstAdmin() error = %v, want ErrAdminExists", err)
	}

	n, err := q.CountAdmins(ctx)
	if err != nil {
		t.Fatalf("CountAdmins() error: %v", err)
	}
	if n != 1 {
		t.Errorf("CountAdmins() = %d, want 1", n)
	}
}

func TestGetAdminByUsername_NotFound(t *testing.T) {
	q := New(testDB(t))

	_, err := q.GetAdminByUsername(context.Background(), "ghost")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetAdminByUsername() error = %v, want sql.ErrNoRows", err)
	}
}

func TestCreateActivationCode_UniqueViolation(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	if _, err := q.CreateActivationCode(ctx, "abcd1234-efgh5678-ijkl9012"); err != nil {
		t.Fatalf("CreateActivationCode() error: %v", err)
	}

	_, err := q.CreateActivationCode(ctx, "abcd1234-efgh5678-ijkl9012")
	if err == nil {
		t.Fatal("duplicate CreateActivationCode() should fail")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}
}

func TestGetActiveCode(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	created, err := q.CreateActivationCode(ctx, "abcd1234-efgh5678-ijkl9012")
	if err != nil {
		t.Fatalf("CreateActivationCode() error: %v", err)
	}

	got, err := q.GetActiveCode(ctx, created.Code)
	if err != nil {
		t.Fatalf("GetActiveCode() error: %v", err)
	}
	if !got.IsActive {
		t.Error("freshly created code should be active")
	}

	// Deactivate and verify the lookup refuses it
	if err := q.ToggleActivationCode(ctx, created.ID); err != nil {
		t.Fatalf("ToggleActivationCode() error: %v", err)
	}
	_, err = q.GetActiveCode(ctx, created.Code)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetActiveCode() on inactive code error = %v, want sql.ErrNoRows", err)
	}

	// Unknown codes are also ErrNoRows
	_, err = q.GetActiveCode(ctx, "ABCDEF")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetActiveCode() on unknown code error = %v, want sql.ErrNoRows", err)
	}
}

func TestToggleActivationCode(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	created, err := q.CreateActivationCode(ctx, "abcd1234-efgh5678-ijkl9012")
	if err != nil {
		t.Fatalf("CreateActivationCode() error: %v", err)
	}

	if err := q.ToggleActivationCode(ctx, created.ID); err != nil {
		t.Fatalf("ToggleActivationCode() error: %v", err)
	}
	got, err := q.GetActivationCodeByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetActivationCodeByID() error: %v", err)
	}
	if got.IsActive {
		t.Error("code should be inactive after first toggle")
	}

	if err := q.ToggleActivationCode(ctx, created.ID); err != nil {
		t.Fatalf("ToggleActivationCode() error: %v", err)
	}
	got, err = q.GetActivationCodeByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetActivationCodeByID() error: %v", err)
	}
	if !got.IsActive {
		t.Error("code should be active again after second toggle")
	}

	// Absent ids are a silent no-op
	if err := q.ToggleActivationCode(ctx, 9999); err != nil {
		t.Errorf("ToggleActivationCode() on absent id returned error: %v", err)
	}
}

func TestDeleteActivationCode_AbsentIDIsNoOp(t *testing.T) {
	q := New(testDB(t))

	if err := q.DeleteActivationCode(context.Background(), 4242); err != nil {
		t.Errorf("DeleteActivationCode() on absent id returned error: %v", err)
	}
}

func TestEvents_CreateAndPurge(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	if _, err := q.CreateEvent(ctx, CreateEventParams{
		Level:     model.EventLevelWarning,
		Category:  model.EventCategoryAuth,
		Message:   "login failed",
		IPAddress: "203.0.113.9",
		Metadata:  `{"username":"admin"}`,
		CreatedAt: old,
	}); err != nil {
		t.Fatalf("CreateEvent() error: %v", err)
	}
	if _, err := q.CreateEvent(ctx, CreateEventParams{
		Level:     model.EventLevelInfo,
		Category:  model.EventCategorySystem,
		Message:   "recent event",
		Metadata:  "{}",
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("CreateEvent() error: %v", err)
	}

	events, err := q.ListRecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentEvents() error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Message != "recent event" {
		t.Errorf("events[0].Message = %q, want newest first", events[0].Message)
	}

	deleted, err := q.DeleteEventsBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteEventsBefore() error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteEventsBefore() = %d, want 1", deleted)
	}
}
