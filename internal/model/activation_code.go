// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// ActivationCode is a shared secret gating public read/write access to
// the confession feed. Inactive codes are refused but kept for audit.
type ActivationCode struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
