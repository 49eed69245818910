// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// RequireClientToken creates middleware that hides the admin surface from
// callers whose User-Agent does not match the configured token. Requests
// that fail the check get a plain 404 so the routes are indistinguishable
// from nonexistent ones. An empty token disables the gate.
func RequireClientToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua := r.Header.Get("User-Agent")
			if subtle.ConstantTimeCompare([]byte(ua), []byte(token)) != 1 {
				slog.Warn("admin client token mismatch",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.NotFound(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
