// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the
// application including Confession, Admin, ActivationCode and Event.
package model

import "time"

// Confession moderation states. The only allowed transition is
// pending -> approved; there is no un-approve.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// Confession represents an anonymous submission subject to moderation.
// Only approved confessions are visible on the public feed.
type Confession struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsApproved returns true if the confession is publicly visible.
func (c *Confession) IsApproved() bool {
	return c.Status == StatusApproved
}
