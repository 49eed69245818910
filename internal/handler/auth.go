// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/whisperwall/whisperwall/internal/auth"
	"github.com/whisperwall/whisperwall/internal/middleware"
	"github.com/whisperwall/whisperwall/internal/model"
	"github.com/whisperwall/whisperwall/internal/render"
	"github.com/whisperwall/whisperwall/internal/service"
	"github.com/whisperwall/whisperwall/internal/store"
)

// SessionKeyAdminID is the session key for storing the authenticated admin ID.
const SessionKeyAdminID = middleware.SessionKeyAdminID

// AuthHandler handles admin authentication routes.
type AuthHandler struct {
	queries         *store.Queries
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		renderer:        renderer,
		sessionManager:  sm,
		eventService:    service.NewEventService(db),
		loginProtection: lp,
	}
}

// LoginForm renders the login page. Already-authenticated admins are
// sent straight to the dashboard.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if adminID := h.sessionManager.GetInt64(r.Context(), SessionKeyAdminID); adminID > 0 {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/login", render.TemplateData{
		Title: "Admin login",
	}); err != nil {
		logAndInternalError(w, "failed to render login page", "error", err)
	}
}

// Login handles the login form submission. Unknown usernames and wrong
// passwords produce the same generic message so accounts cannot be
// enumerated.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		flashError(w, r, h.renderer, redirectLogin, "Username and password are required")
		return
	}

	clientIP := r.RemoteAddr

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(username); locked {
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login attempt on locked account", nil, clientIP, map[string]any{"username": username})
			flashError(w, r, h.renderer, redirectLogin, "Account temporarily locked. Try again in "+formatDuration(remaining))
			return
		}
	}

	admin, err := h.queries.GetAdminByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: unknown username", nil, clientIP, map[string]any{"username": username})
		} else {
			slog.Error("database error during login", "error", err)
		}
		// Record failed attempt even for unknown usernames to prevent enumeration
		h.recordFailure(w, r, username)
		return
	}

	valid, err := auth.CheckPassword(password, admin.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		flashError(w, r, h.renderer, redirectLogin, "Invalid username or password")
		return
	}

	if !valid {
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: invalid password", &admin.ID, clientIP, map[string]any{"username": username})
		h.recordFailure(w, r, username)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(username)
	}

	// Re-hash the password transparently if it uses outdated parameters
	if auth.NeedsRehash(admin.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateAdminPassword(r.Context(), store.UpdateAdminPasswordParams{
				PasswordHash: newHash,
				ID:           admin.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "admin_id", admin.ID)
			} else {
				slog.Info("password re-hashed with updated parameters", "admin_id", admin.ID)
			}
		}
	}

	if err := h.queries.UpdateAdminLastLogin(r.Context(), admin.ID); err != nil {
		// Don't block login on this error
		slog.Error("failed to update last login time", "error", err, "admin_id", admin.ID)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	h.sessionManager.Put(r.Context(), SessionKeyAdminID, admin.ID)

	slog.Info("admin logged in", "admin_id", admin.ID, "username", admin.Username)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "Admin logged in", &admin.ID, clientIP, map[string]any{"username": admin.Username})

	h.renderer.SetFlash(r, "Welcome back, "+admin.Username, "success")
	http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
}

// recordFailure records a failed attempt and redirects with the generic
// credentials message, or the lockout message when the account just locked.
func (h *AuthHandler) recordFailure(w http.ResponseWriter, r *http.Request, username string) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(username); locked {
			flashError(w, r, h.renderer, redirectLogin, "Too many failed attempts. Try again in "+formatDuration(lockDuration))
			return
		}
	}
	flashError(w, r, h.renderer, redirectLogin, "Invalid username or password")
}

// Logout destroys the session unconditionally and redirects to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	adminID := h.sessionManager.GetInt64(r.Context(), SessionKeyAdminID)

	if adminID > 0 {
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "Admin logged out", &adminID, r.RemoteAddr, nil)
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	flashAndRedirect(w, r, h.renderer, redirectLogin, "You have been logged out", "info")
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
