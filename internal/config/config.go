// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
// The upstream board shipped with a fallback session secret; a reimplementation
// must make the secret explicit configuration, never a silent default.
var knownWeakSecrets = []string{
	"fallback-secret-change-in-production",
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"WW_DB_PATH" envDefault:"./data/whisperwall.db"`
	SessionSecret string `env:"WW_SESSION_SECRET,required"`
	ServerHost    string `env:"WW_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"WW_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"WW_ENV" envDefault:"development"`
	LogLevel      string `env:"WW_LOG_LEVEL" envDefault:"info"`

	// AdminClientToken optionally gates the login form: when set, requests
	// must present it as their User-Agent header or the login routes answer
	// 404. An obscurity layer on top of sessions, never instead of them.
	// There is deliberately no default value.
	AdminClientToken string `env:"WW_ADMIN_CLIENT_TOKEN"`

	// Cache configuration
	RedisURL string `env:"WW_REDIS_URL"`                    // Optional Redis URL for the feed cache
	CacheTTL int    `env:"WW_CACHE_TTL" envDefault:"60"`    // Feed cache TTL in seconds

	// EventRetentionDays is how long event log entries are kept before the
	// nightly purge removes them.
	EventRetentionDays int `env:"WW_EVENT_RETENTION_DAYS" envDefault:"90"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// LoginGateEnabled returns true if the admin client-token gate is configured.
func (c Config) LoginGateEnabled() bool {
	return c.AdminClientToken != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("WW_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("WW_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("WW_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if cfg.EventRetentionDays < 1 {
		return nil, fmt.Errorf("WW_EVENT_RETENTION_DAYS must be at least 1, got %d", cfg.EventRetentionDays)
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
