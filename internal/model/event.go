// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Event log levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event log categories.
const (
	EventCategoryAuth       = "auth"
	EventCategoryConfession = "confession"
	EventCategoryCode       = "code"
	EventCategorySystem     = "system"
)

// Event is an operator-facing audit log entry. User-visible failures stay
// coarse-grained; the internal cause lands here instead.
type Event struct {
	ID        int64         `json:"id"`
	Level     string        `json:"level"`
	Category  string        `json:"category"`
	Message   string        `json:"message"`
	AdminID   sql.NullInt64 `json:"admin_id,omitempty"`
	IPAddress string        `json:"ip_address,omitempty"`
	Metadata  string        `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}
