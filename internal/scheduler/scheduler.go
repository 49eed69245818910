// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs, currently the
// nightly purge of old event log entries.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/whisperwall/whisperwall/internal/store"
)

// Scheduler handles scheduled maintenance tasks.
type Scheduler struct {
	db            *sql.DB
	cron          *cron.Cron
	logger        *slog.Logger
	retentionDays int
}

// New creates a new scheduler instance. Events older than retentionDays
// are purged nightly.
func New(db *sql.DB, logger *slog.Logger, retentionDays int) *Scheduler {
	return &Scheduler{
		db:            db,
		cron:          cron.New(),
		logger:        logger,
		retentionDays: retentionDays,
	}
}

// Start begins the scheduler with the nightly event purge job.
func (s *Scheduler) Start() error {
	// Run at 03:30 every night, a quiet hour for a confession board
	_, err := s.cron.AddFunc("30 3 * * *", func() {
		if err := s.purgeOldEvents(); err != nil {
			s.logger.Error("failed to purge old events", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "event_retention_days", s.retentionDays)
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// purgeOldEvents deletes event log entries older than the retention window.
func (s *Scheduler) purgeOldEvents() error {
	ctx := context.Background()
	queries := store.New(s.db)

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	deleted, err := queries.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		s.logger.Info("purged old events", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}

	return nil
}
