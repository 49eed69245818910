// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic shared between handlers,
// currently the audit event log.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/whisperwall/whisperwall/internal/model"
	"github.com/whisperwall/whisperwall/internal/store"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, adminID *int64, ipAddress string, metadata map[string]any) error {
	var nullAdminID sql.NullInt64
	if adminID != nil {
		nullAdminID = sql.NullInt64{Int64: *adminID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		AdminID:   nullAdminID,
		IPAddress: ipAddress,
		Metadata:  metadataJSON,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("Failed to log event: %v", err)
		return err
	}

	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, adminID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, adminID, ipAddress, metadata)
}

// LogConfessionEvent logs a moderation event.
func (s *EventService) LogConfessionEvent(ctx context.Context, level, message string, adminID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryConfession, message, adminID, ipAddress, metadata)
}

// LogCodeEvent logs an activation-code lifecycle event.
func (s *EventService) LogCodeEvent(ctx context.Context, level, message string, adminID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryCode, message, adminID, ipAddress, metadata)
}

// LogSystemEvent logs a system-level event.
func (s *EventService) LogSystemEvent(ctx context.Context, level, message string, adminID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySystem, message, adminID, ipAddress, metadata)
}
