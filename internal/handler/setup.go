// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/whisperwall/whisperwall/internal/auth"
	"github.com/whisperwall/whisperwall/internal/model"
	"github.com/whisperwall/whisperwall/internal/render"
	"github.com/whisperwall/whisperwall/internal/service"
	"github.com/whisperwall/whisperwall/internal/store"
)

// SetupHandler handles the one-time creation of the first admin account.
// Once any admin exists, both routes answer 404 for good.
type SetupHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	eventService *service.EventService
}

// NewSetupHandler creates a new SetupHandler.
func NewSetupHandler(db *sql.DB, renderer *render.Renderer) *SetupHandler {
	return &SetupHandler{
		queries:      store.New(db),
		renderer:     renderer,
		eventService: service.NewEventService(db),
	}
}

// SetupFormData is the template data for the setup form.
type SetupFormData struct {
	Error string
}

// SetupForm renders the first-admin form, or 404 if setup already ran.
func (h *SetupHandler) SetupForm(w http.ResponseWriter, r *http.Request) {
	count, err := h.queries.CountAdmins(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to count admins", "error", err)
		return
	}
	if count > 0 {
		http.NotFound(w, r)
		return
	}

	if err := h.renderer.Render(w, r, "auth/setup", render.TemplateData{
		Title: "Initial setup",
		Data:  SetupFormData{Error: r.URL.Query().Get("error")},
	}); err != nil {
		logAndInternalError(w, "failed to render setup page", "error", err)
	}
}

// Setup creates the first admin account. The insert itself is guarded
// against concurrent setup attempts, so two racing requests cannot both
// succeed. The new admin is NOT logged in; they must use the login form.
func (h *SetupHandler) Setup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, RouteSetup+"?error="+errTokenMissing, http.StatusSeeOther)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		http.Redirect(w, r, RouteSetup+"?error="+errTokenMissing, http.StatusSeeOther)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logAndInternalError(w, "failed to hash password", "error", err)
		return
	}

	admin, err := h.queries.CreateFirstAdmin(r.Context(), store.CreateFirstAdminParams{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrAdminExists) {
			http.NotFound(w, r)
			return
		}
		logAndInternalError(w, "failed to create first admin", "error", err)
		return
	}

	slog.Info("first admin created", "admin_id", admin.ID, "username", admin.Username)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "First admin account created", &admin.ID, r.RemoteAddr, map[string]any{"username": admin.Username})

	if err := h.renderer.Render(w, r, "auth/setup_complete", render.TemplateData{
		Title: "Setup complete",
		Data:  admin.Username,
	}); err != nil {
		logAndInternalError(w, "failed to render setup confirmation", "error", err)
	}
}
