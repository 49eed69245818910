// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL is the Redis connection URL. When empty, an in-memory
	// cache is used.
	RedisURL string

	// DefaultTTL is the default TTL for cache entries.
	DefaultTTL time.Duration
}

// New creates a cache based on the provided configuration.
// If RedisURL is set but the server is unreachable, it logs a warning
// and falls back to the in-memory cache so startup never depends on Redis.
func New(cfg Config) Cacher {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = time.Minute
	}

	if cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.DefaultTTL)
		if err == nil {
			slog.Info("using Redis cache", "url", cfg.RedisURL)
			return rc
		}
		slog.Warn("Redis cache unavailable, falling back to memory cache", "error", err)
	}

	return NewSimpleMemoryCache(cfg.DefaultTTL)
}
