// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route paths.
const (
	RouteRoot   = "/"
	RouteSubmit = "/submit"
	RouteSetup  = "/setup"

	RouteAdmin            = "/admin"
	RouteAdminLogin       = "/admin/login"
	RouteAdminLogout      = "/admin/logout"
	RouteGenerateCode     = "/admin/generate-code"
	RouteToggleCode       = "/admin/toggle-code"
	RouteDeleteCode       = "/admin/delete-code"
	RouteApprove          = "/admin/approve"
	RouteDeleteConfession = "/admin/delete"
	RouteEditConfession   = "/admin/edit"

	// RouteParamID is the chi URL parameter suffix for id-scoped actions.
	RouteParamID = "/{id}"
)

// Common redirect targets.
const (
	redirectAdmin = RouteAdmin
	redirectLogin = RouteAdminLogin
)

// Error tokens carried in query strings and re-rendered forms. These are
// stable identifiers the templates translate into user-facing text.
const (
	errTokenCodeRequired    = "code_required"
	errTokenInvalidCode     = "invalid_code"
	errTokenContentRequired = "content_required"
	errTokenServer          = "server_error"
	errTokenMissing         = "missing"
)
