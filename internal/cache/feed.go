// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/whisperwall/whisperwall/internal/model"
	"github.com/whisperwall/whisperwall/internal/store"
)

// feedKey is the cache key for the approved confession feed.
const feedKey = "feed:approved"

// FeedCache provides cached access to the approved confession feed.
// The full feed is stored as one JSON-encoded entry and invalidated on
// any moderation action, so readers between invalidations share a single
// database query.
type FeedCache struct {
	cache   Cacher
	queries *store.Queries
}

// NewFeedCache creates a feed cache backed by the given Cacher.
func NewFeedCache(cache Cacher, queries *store.Queries) *FeedCache {
	return &FeedCache{
		cache:   cache,
		queries: queries,
	}
}

// Approved returns the approved confessions, newest first.
// Cache failures degrade to a direct database read.
func (c *FeedCache) Approved(ctx context.Context) ([]model.Confession, error) {
	if data, err := c.cache.Get(ctx, feedKey); err == nil {
		var confessions []model.Confession
		if err := json.Unmarshal(data, &confessions); err == nil {
			return confessions, nil
		}
		// Corrupt entry, drop it and fall through to the database
		_ = c.cache.Delete(ctx, feedKey)
	} else if !errors.Is(err, ErrCacheMiss) {
		slog.Warn("feed cache read failed", "error", err)
	}

	confessions, err := c.queries.ListConfessionsByStatus(ctx, model.StatusApproved)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(confessions); err == nil {
		if err := c.cache.Set(ctx, feedKey, data, 0); err != nil {
			slog.Warn("feed cache write failed", "error", err)
		}
	}

	return confessions, nil
}

// Invalidate drops the cached feed. Called after approve, edit and delete.
func (c *FeedCache) Invalidate(ctx context.Context) {
	if err := c.cache.Delete(ctx, feedKey); err != nil {
		slog.Warn("feed cache invalidation failed", "error", err)
	}
}
