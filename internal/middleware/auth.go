// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// abuse protection, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/whisperwall/whisperwall/internal/model"
	"github.com/whisperwall/whisperwall/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyAdmin is the context key for the authenticated admin.
const ContextKeyAdmin ContextKey = "admin"

// SessionKeyAdminID is the session key holding the authenticated admin's ID.
const SessionKeyAdminID = "admin_id"

// Auth creates middleware that requires an authenticated admin session.
// Unauthenticated requests are redirected to the login page.
func Auth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminID := sm.GetInt64(r.Context(), SessionKeyAdminID)
			if adminID == 0 {
				http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoadAdmin creates middleware that loads the current admin into the request
// context. This should be used after Auth middleware. If the session points
// at an admin that no longer exists, the session is destroyed.
func LoadAdmin(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminID := sm.GetInt64(r.Context(), SessionKeyAdminID)
			if adminID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			admin, err := queries.GetAdminByID(r.Context(), adminID)
			if err != nil {
				_ = sm.Destroy(r.Context())
				http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAdmin, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdmin retrieves the current admin from the request context.
// Returns nil if no admin is in context.
func GetAdmin(r *http.Request) *model.Admin {
	admin, ok := r.Context().Value(ContextKeyAdmin).(model.Admin)
	if !ok {
		return nil
	}
	return &admin
}

// GetAdminID returns the current admin's ID from context, or 0 if not found.
func GetAdminID(r *http.Request) int64 {
	if admin := GetAdmin(r); admin != nil {
		return admin.ID
	}
	return 0
}

// GetAdminIDPtr returns a pointer to the current admin's ID from context,
// or nil if not found. Useful for optional admin ID parameters in event logging.
func GetAdminIDPtr(r *http.Request) *int64 {
	if admin := GetAdmin(r); admin != nil {
		id := admin.ID
		return &id
	}
	return nil
}
