// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides database access: connection setup, embedded
// migrations and the query layer used by handlers and services.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/whisperwall/whisperwall/internal/model"
)

// ErrAdminExists is returned by CreateFirstAdmin when an admin account
// already exists. The setup flow maps it to an opaque 404.
var ErrAdminExists = errors.New("admin account already exists")

// Queries wraps a database handle with typed query methods.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance for the given database.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
// Works for both the modernc and mattn SQLite drivers, which surface the
// constraint name in the error text.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ----------------------------------------------------------------------------
// Confessions
// ----------------------------------------------------------------------------

// CreateConfession inserts a new confession in the pending state.
func (q *Queries) CreateConfession(ctx context.Context, content string) (model.Confession, error) {
	now := time.Now()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO confessions (content, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		content, model.StatusPending, now, now,
	)
	if err != nil {
		return model.Confession{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Confession{}, err
	}
	return model.Confession{
		ID:        id,
		Content:   content,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetConfessionByID returns a single confession.
func (q *Queries) GetConfessionByID(ctx context.Context, id int64) (model.Confession, error) {
	var c model.Confession
	err := q.db.QueryRowContext(ctx,
		`SELECT id, content, status, created_at, updated_at FROM confessions WHERE id = ?`, id,
	).Scan(&c.ID, &c.Content, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListConfessionsByStatus returns confessions in the given state ordered
// newest-first, ties broken by insertion order.
func (q *Queries) ListConfessionsByStatus(ctx context.Context, status string) ([]model.Confession, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, content, status, created_at, updated_at
		 FROM confessions WHERE status = ?
		 ORDER BY created_at DESC, id`, status,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var confessions []model.Confession
	for rows.Next() {
		var c model.Confession
		if err := rows.Scan(&c.ID, &c.Content, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		confessions = append(confessions, c)
	}
	return confessions, rows.Err()
}

// CountConfessionsByStatus returns the number of confessions in a state.
func (q *Queries) CountConfessionsByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM confessions WHERE status = ?`, status,
	).Scan(&n)
	return n, err
}

// ApproveConfession transitions a confession to the approved state.
// Approving an already-approved confession is a no-op with the same result.
func (q *Queries) ApproveConfession(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE confessions SET status = ?, updated_at = ? WHERE id = ?`,
		model.StatusApproved, time.Now(), id,
	)
	return err
}

// UpdateConfessionContentParams holds parameters for UpdateConfessionContent.
type UpdateConfessionContentParams struct {
	Content   string
	UpdatedAt time.Time
	ID        int64
}

// UpdateConfessionContent replaces a confession's content. Status and
// created_at are untouched.
func (q *Queries) UpdateConfessionContent(ctx context.Context, arg UpdateConfessionContentParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE confessions SET content = ?, updated_at = ? WHERE id = ?`,
		arg.Content, arg.UpdatedAt, arg.ID,
	)
	return err
}

// DeleteConfession removes a confession. Deleting an absent id is a no-op.
func (q *Queries) DeleteConfession(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM confessions WHERE id = ?`, id)
	return err
}

// ----------------------------------------------------------------------------
// Admins
// ----------------------------------------------------------------------------

// CreateFirstAdminParams holds parameters for CreateFirstAdmin.
type CreateFirstAdminParams struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateFirstAdmin creates the admin account if and only if no admin
// exists yet. The insert-if-empty is a single statement, so two
// concurrent setup calls cannot both succeed.
func (q *Queries) CreateFirstAdmin(ctx context.Context, arg CreateFirstAdminParams) (model.Admin, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO admins (username, password_hash, created_at)
		 SELECT ?, ?, ?
		 WHERE NOT EXISTS (SELECT 1 FROM admins)`,
		arg.Username, arg.PasswordHash, arg.CreatedAt,
	)
	if err != nil {
		return model.Admin{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.Admin{}, err
	}
	if affected == 0 {
		return model.Admin{}, ErrAdminExists
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Admin{}, err
	}
	return model.Admin{
		ID:           id,
		Username:     arg.Username,
		PasswordHash: arg.PasswordHash,
		CreatedAt:    arg.CreatedAt,
	}, nil
}

// CountAdmins returns the number of admin accounts.
func (q *Queries) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n)
	return n, err
}

// GetAdminByUsername looks up an admin by username.
func (q *Queries) GetAdminByUsername(ctx context.Context, username string) (model.Admin, error) {
	var a model.Admin
	err := q.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at, last_login_at FROM admins WHERE username = ?`,
		username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt, &a.LastLoginAt)
	return a, err
}

// GetAdminByID looks up an admin by id.
func (q *Queries) GetAdminByID(ctx context.Context, id int64) (model.Admin, error) {
	var a model.Admin
	err := q.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at, last_login_at FROM admins WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt, &a.LastLoginAt)
	return a, err
}

// UpdateAdminPasswordParams holds parameters for UpdateAdminPassword.
type UpdateAdminPasswordParams struct {
	PasswordHash string
	ID           int64
}

// UpdateAdminPassword replaces the stored password hash. Used by the
// transparent rehash at login.
func (q *Queries) UpdateAdminPassword(ctx context.Context, arg UpdateAdminPasswordParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE admins SET password_hash = ? WHERE id = ?`,
		arg.PasswordHash, arg.ID,
	)
	return err
}

// UpdateAdminLastLogin records a successful login time.
func (q *Queries) UpdateAdminLastLogin(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE admins SET last_login_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	return err
}

// ----------------------------------------------------------------------------
// Activation codes
// ----------------------------------------------------------------------------

// CreateActivationCode persists a new code in the active state. A UNIQUE
// violation on the code column is surfaced to the caller for retry.
func (q *Queries) CreateActivationCode(ctx context.Context, codeValue string) (model.ActivationCode, error) {
	now := time.Now()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO activation_codes (code, is_active, created_at) VALUES (?, 1, ?)`,
		codeValue, now,
	)
	if err != nil {
		return model.ActivationCode{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.ActivationCode{}, err
	}
	return model.ActivationCode{
		ID:        id,
		Code:      codeValue,
		IsActive:  true,
		CreatedAt: now,
	}, nil
}

// GetActiveCode returns the activation code record matching the given
// value only if it is currently active.
func (q *Queries) GetActiveCode(ctx context.Context, codeValue string) (model.ActivationCode, error) {
	var c model.ActivationCode
	err := q.db.QueryRowContext(ctx,
		`SELECT id, code, is_active, created_at FROM activation_codes WHERE code = ? AND is_active = 1`,
		codeValue,
	).Scan(&c.ID, &c.Code, &c.IsActive, &c.CreatedAt)
	return c, err
}

// GetActivationCodeByID returns a single activation code record.
func (q *Queries) GetActivationCodeByID(ctx context.Context, id int64) (model.ActivationCode, error) {
	var c model.ActivationCode
	err := q.db.QueryRowContext(ctx,
		`SELECT id, code, is_active, created_at FROM activation_codes WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Code, &c.IsActive, &c.CreatedAt)
	return c, err
}

// ListActivationCodes returns all codes ordered newest-first.
func (q *Queries) ListActivationCodes(ctx context.Context) ([]model.ActivationCode, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, code, is_active, created_at FROM activation_codes ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var codes []model.ActivationCode
	for rows.Next() {
		var c model.ActivationCode
		if err := rows.Scan(&c.ID, &c.Code, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// ToggleActivationCode flips is_active in a single statement, so there is
// no read-then-write window. Toggling an absent id is a no-op.
func (q *Queries) ToggleActivationCode(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE activation_codes SET is_active = NOT is_active WHERE id = ?`, id,
	)
	return err
}

// DeleteActivationCode removes a code. Deleting an absent id is a no-op.
func (q *Queries) DeleteActivationCode(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM activation_codes WHERE id = ?`, id)
	return err
}

// ----------------------------------------------------------------------------
// Events
// ----------------------------------------------------------------------------

// CreateEventParams holds parameters for CreateEvent.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	AdminID   sql.NullInt64
	IPAddress string
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent inserts an event log entry.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO events (level, category, message, admin_id, ip_address, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.AdminID, arg.IPAddress, arg.Metadata, arg.CreatedAt,
	)
	if err != nil {
		return model.Event{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		ID:        id,
		Level:     arg.Level,
		Category:  arg.Category,
		Message:   arg.Message,
		AdminID:   arg.AdminID,
		IPAddress: arg.IPAddress,
		Metadata:  arg.Metadata,
		CreatedAt: arg.CreatedAt,
	}, nil
}

// ListRecentEvents returns the most recent event log entries.
func (q *Queries) ListRecentEvents(ctx context.Context, limit int64) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, level, category, message, admin_id, ip_address, metadata, created_at
		 FROM events ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.AdminID, &e.IPAddress, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEventsBefore removes event log entries older than cutoff and
// returns how many were deleted.
func (q *Queries) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
