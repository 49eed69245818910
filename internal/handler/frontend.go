// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the HTTP handlers for the public board and the
// admin moderation panel.
package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/whisperwall/whisperwall/internal/cache"
	"github.com/whisperwall/whisperwall/internal/model"
	"github.com/whisperwall/whisperwall/internal/render"
	"github.com/whisperwall/whisperwall/internal/service"
	"github.com/whisperwall/whisperwall/internal/store"
)

// FrontendHandler handles the public routes: the gated feed and the
// confession submission form.
type FrontendHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	feedCache    *cache.FeedCache
	eventService *service.EventService
}

// NewFrontendHandler creates a new FrontendHandler.
func NewFrontendHandler(db *sql.DB, renderer *render.Renderer, feedCache *cache.FeedCache) *FrontendHandler {
	return &FrontendHandler{
		queries:      store.New(db),
		renderer:     renderer,
		feedCache:    feedCache,
		eventService: service.NewEventService(db),
	}
}

// FeedData is the template data for the feed page.
type FeedData struct {
	// Authorized is true once a valid activation code was presented.
	Authorized  bool
	Code        string
	Confessions []model.Confession
}

// Home renders the activation code prompt. No confessions are shown
// until a valid code is posted.
func (h *FrontendHandler) Home(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "public/index", render.TemplateData{
		Title: "Whisperwall",
		Data:  FeedData{},
	}); err != nil {
		logAndInternalError(w, "failed to render feed page", "error", err)
	}
}

// Feed validates the posted activation code and renders the approved
// confessions. Invalid codes re-render the prompt with an error token.
func (h *FrontendHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderFeedError(w, r, errTokenCodeRequired)
		return
	}

	codeValue := strings.TrimSpace(r.FormValue("code"))
	if codeValue == "" {
		h.renderFeedError(w, r, errTokenCodeRequired)
		return
	}

	if _, err := h.queries.GetActiveCode(r.Context(), codeValue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.renderFeedError(w, r, errTokenInvalidCode)
			return
		}
		slog.Error("failed to look up activation code", "error", err)
		h.renderFeedError(w, r, errTokenServer)
		return
	}

	confessions, err := h.feedCache.Approved(r.Context())
	if err != nil {
		slog.Error("failed to load approved confessions", "error", err)
		h.renderFeedError(w, r, errTokenServer)
		return
	}

	if err := h.renderer.Render(w, r, "public/index", render.TemplateData{
		Title: "Whisperwall",
		Data: FeedData{
			Authorized:  true,
			Code:        codeValue,
			Confessions: confessions,
		},
	}); err != nil {
		logAndInternalError(w, "failed to render feed page", "error", err)
	}
}

// renderFeedError re-renders the code prompt with an error token.
func (h *FrontendHandler) renderFeedError(w http.ResponseWriter, r *http.Request, token string) {
	if err := h.renderer.Render(w, r, "public/index", render.TemplateData{
		Title: "Whisperwall",
		Error: token,
		Data:  FeedData{},
	}); err != nil {
		logAndInternalError(w, "failed to render feed page", "error", err)
	}
}

// SubmitFormData is the template data for the submission form.
type SubmitFormData struct {
	Error   string
	Success bool
}

// SubmitForm renders the confession submission form. Outcome of a prior
// submission is carried in the error and success query parameters.
func (h *FrontendHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	data := SubmitFormData{
		Error:   r.URL.Query().Get("error"),
		Success: r.URL.Query().Get("success") == "1",
	}

	if err := h.renderer.Render(w, r, "public/submit", render.TemplateData{
		Title: "Share a confession",
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "failed to render submit page", "error", err)
	}
}

// Submit validates the activation code and creates a pending confession.
// All outcomes redirect back to the form with a token so a reload never
// resubmits.
func (h *FrontendHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, RouteSubmit+"?error="+errTokenCodeRequired, http.StatusSeeOther)
		return
	}

	codeValue := strings.TrimSpace(r.FormValue("code"))
	if codeValue == "" {
		http.Redirect(w, r, RouteSubmit+"?error="+errTokenCodeRequired, http.StatusSeeOther)
		return
	}

	if _, err := h.queries.GetActiveCode(r.Context(), codeValue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Redirect(w, r, RouteSubmit+"?error="+errTokenInvalidCode, http.StatusSeeOther)
			return
		}
		slog.Error("failed to look up activation code", "error", err)
		http.Redirect(w, r, RouteSubmit+"?error="+errTokenServer, http.StatusSeeOther)
		return
	}

	content := strings.TrimSpace(r.FormValue("content"))
	if content == "" {
		http.Redirect(w, r, RouteSubmit+"?error="+errTokenContentRequired, http.StatusSeeOther)
		return
	}

	confession, err := h.queries.CreateConfession(r.Context(), content)
	if err != nil {
		slog.Error("failed to create confession", "error", err)
		http.Redirect(w, r, RouteSubmit+"?error="+errTokenServer, http.StatusSeeOther)
		return
	}

	_ = h.eventService.LogConfessionEvent(r.Context(), model.EventLevelInfo, "Confession submitted", nil, "", map[string]any{"confession_id": confession.ID})

	http.Redirect(w, r, RouteSubmit+"?success=1", http.StatusSeeOther)
}
