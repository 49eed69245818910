// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/whisperwall/whisperwall/internal/cache"
	"github.com/whisperwall/whisperwall/internal/code"
	"github.com/whisperwall/whisperwall/internal/middleware"
	"github.com/whisperwall/whisperwall/internal/model"
	"github.com/whisperwall/whisperwall/internal/render"
	"github.com/whisperwall/whisperwall/internal/service"
	"github.com/whisperwall/whisperwall/internal/store"
)

// maxCodeGenerationAttempts bounds the retry loop on the astronomically
// unlikely event of a generated code colliding with an existing one.
const maxCodeGenerationAttempts = 3

// AdminHandler handles the moderation dashboard and its actions.
type AdminHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	feedCache      *cache.FeedCache
	eventService   *service.EventService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, feedCache *cache.FeedCache) *AdminHandler {
	return &AdminHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
		feedCache:      feedCache,
		eventService:   service.NewEventService(db),
	}
}

// DashboardData is the template data for the admin dashboard.
type DashboardData struct {
	Pending       []model.Confession
	Approved      []model.Confession
	Codes         []model.ActivationCode
	PendingCount  int64
	ApprovedCount int64
}

// Dashboard renders the moderation dashboard: pending and approved
// confessions plus the activation code list.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := h.queries.ListConfessionsByStatus(ctx, model.StatusPending)
	if err != nil {
		logAndInternalError(w, "failed to list pending confessions", "error", err)
		return
	}

	approved, err := h.queries.ListConfessionsByStatus(ctx, model.StatusApproved)
	if err != nil {
		logAndInternalError(w, "failed to list approved confessions", "error", err)
		return
	}

	codes, err := h.queries.ListActivationCodes(ctx)
	if err != nil {
		logAndInternalError(w, "failed to list activation codes", "error", err)
		return
	}

	data := DashboardData{
		Pending:       pending,
		Approved:      approved,
		Codes:         codes,
		PendingCount:  int64(len(pending)),
		ApprovedCount: int64(len(approved)),
	}

	if err := h.renderer.Render(w, r, "admin/dashboard", render.TemplateData{
		Title: "Moderation",
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "failed to render dashboard", "error", err)
	}
}

// ApproveConfession publishes a confession. Approving an already-approved
// or missing confession is a harmless no-op.
func (h *AdminHandler) ApproveConfession(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, h.renderer)
	if !ok {
		return
	}

	if err := h.queries.ApproveConfession(r.Context(), id); err != nil {
		slog.Error("failed to approve confession", "error", err, "confession_id", id)
		flashError(w, r, h.renderer, redirectAdmin, "Error approving confession")
		return
	}

	h.feedCache.Invalidate(r.Context())
	_ = h.eventService.LogConfessionEvent(r.Context(), model.EventLevelInfo, "Confession approved", middleware.GetAdminIDPtr(r), r.RemoteAddr, map[string]any{"confession_id": id})

	flashSuccess(w, r, h.renderer, redirectAdmin, "Confession approved")
}

// EditConfession replaces a confession's content. The moderation status
// is left untouched.
func (h *AdminHandler) EditConfession(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, h.renderer)
	if !ok {
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, redirectAdmin) {
		return
	}

	content := strings.TrimSpace(r.FormValue("content"))
	if content == "" {
		flashError(w, r, h.renderer, redirectAdmin, "Content is required")
		return
	}

	if err := h.queries.UpdateConfessionContent(r.Context(), store.UpdateConfessionContentParams{
		Content:   content,
		UpdatedAt: time.Now(),
		ID:        id,
	}); err != nil {
		slog.Error("failed to edit confession", "error", err, "confession_id", id)
		flashError(w, r, h.renderer, redirectAdmin, "Error saving confession")
		return
	}

	h.feedCache.Invalidate(r.Context())
	_ = h.eventService.LogConfessionEvent(r.Context(), model.EventLevelInfo, "Confession edited", middleware.GetAdminIDPtr(r), r.RemoteAddr, map[string]any{"confession_id": id})

	flashSuccess(w, r, h.renderer, redirectAdmin, "Confession updated")
}

// DeleteConfession removes a confession. Deleting a missing one is a no-op.
func (h *AdminHandler) DeleteConfession(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, h.renderer)
	if !ok {
		return
	}

	if err := h.queries.DeleteConfession(r.Context(), id); err != nil {
		slog.Error("failed to delete confession", "error", err, "confession_id", id)
		flashError(w, r, h.renderer, redirectAdmin, "Error deleting confession")
		return
	}

	h.feedCache.Invalidate(r.Context())
	_ = h.eventService.LogConfessionEvent(r.Context(), model.EventLevelInfo, "Confession deleted", middleware.GetAdminIDPtr(r), r.RemoteAddr, map[string]any{"confession_id": id})

	flashSuccess(w, r, h.renderer, redirectAdmin, "Confession deleted")
}

// GenerateCode creates a fresh activation code, retrying on the off
// chance the random value collides with an existing one.
func (h *AdminHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	for attempt := 0; attempt < maxCodeGenerationAttempts; attempt++ {
		value, err := code.Generate()
		if err != nil {
			slog.Error("failed to generate activation code", "error", err)
			flashError(w, r, h.renderer, redirectAdmin, "Error generating code")
			return
		}

		created, err := h.queries.CreateActivationCode(r.Context(), value)
		if err != nil {
			if store.IsUniqueViolation(err) {
				slog.Warn("activation code collision, retrying", "attempt", attempt+1)
				continue
			}
			slog.Error("failed to store activation code", "error", err)
			flashError(w, r, h.renderer, redirectAdmin, "Error generating code")
			return
		}

		_ = h.eventService.LogCodeEvent(r.Context(), model.EventLevelInfo, "Activation code generated", middleware.GetAdminIDPtr(r), r.RemoteAddr, map[string]any{"code_id": created.ID})

		flashSuccess(w, r, h.renderer, redirectAdmin, "New code: "+created.Code)
		return
	}

	slog.Error("exhausted activation code generation attempts")
	flashError(w, r, h.renderer, redirectAdmin, "Error generating code")
}

// ToggleCode flips a code between active and inactive in one statement,
// so concurrent toggles cannot lose an update. Missing ids are no-ops.
func (h *AdminHandler) ToggleCode(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, h.renderer)
	if !ok {
		return
	}

	if err := h.queries.ToggleActivationCode(r.Context(), id); err != nil {
		slog.Error("failed to toggle activation code", "error", err, "code_id", id)
		flashError(w, r, h.renderer, redirectAdmin, "Error toggling code")
		return
	}

	_ = h.eventService.LogCodeEvent(r.Context(), model.EventLevelInfo, "Activation code toggled", middleware.GetAdminIDPtr(r), r.RemoteAddr, map[string]any{"code_id": id})

	flashSuccess(w, r, h.renderer, redirectAdmin, "Code updated")
}

// DeleteCode removes an activation code. Missing ids are no-ops.
func (h *AdminHandler) DeleteCode(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, h.renderer)
	if !ok {
		return
	}

	if err := h.queries.DeleteActivationCode(r.Context(), id); err != nil {
		slog.Error("failed to delete activation code", "error", err, "code_id", id)
		flashError(w, r, h.renderer, redirectAdmin, "Error deleting code")
		return
	}

	_ = h.eventService.LogCodeEvent(r.Context(), model.EventLevelInfo, "Activation code deleted", middleware.GetAdminIDPtr(r), r.RemoteAddr, map[string]any{"code_id": id})

	flashSuccess(w, r, h.renderer, redirectAdmin, "Code deleted")
}
