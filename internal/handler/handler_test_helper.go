package handler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/whisperwall/whisperwall/internal/auth"
	"github.com/whisperwall/whisperwall/internal/cache"
	"github.com/whisperwall/whisperwall/internal/render"
	"github.com/whisperwall/whisperwall/internal/store"
)

// testDB creates an in-memory SQLite database with the required schema for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE confessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved')),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX idx_confessions_status ON confessions(status);

		CREATE TABLE admins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);

		CREATE TABLE activation_codes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX idx_activation_codes_code ON activation_codes(code);

		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			admin_id INTEGER,
			ip_address TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// testSessionManager creates a session manager for testing.
func testSessionManager(t *testing.T) *scs.SessionManager {
	t.Helper()
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return sm
}

// testRenderer creates a renderer with minimal templates that expose the
// data the tests assert on.
func testRenderer(t *testing.T, sm *scs.SessionManager) *render.Renderer {
	t.Helper()

	templates := fstest.MapFS{
		"layouts/base.html": &fstest.MapFile{
			Data: []byte(`{{define "base"}}{{template "content" .}}{{end}}`),
		},
		"layouts/admin.html": &fstest.MapFile{
			Data: []byte(`{{define "admin_nav"}}nav{{end}}`),
		},
		"partials/flash.html": &fstest.MapFile{
			Data: []byte(`{{define "flash"}}{{.Flash}}{{end}}`),
		},
		"public/index.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}{{if .Error}}err:{{.Error}}{{end}}{{if .Data.Authorized}}feed{{range .Data.Confessions}}<p>{{.Content}}</p>{{end}}{{end}}{{end}}`),
		},
		"public/submit.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}{{if .Data.Error}}err:{{.Data.Error}}{{end}}{{if .Data.Success}}thanks{{end}}{{end}}`),
		},
		"auth/login.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}login {{template "flash" .}}{{end}}`),
		},
		"auth/setup.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}setup{{if .Data.Error}} err:{{.Data.Error}}{{end}}{{end}}`),
		},
		"auth/setup_complete.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}created:{{.Data}}{{end}}`),
		},
		"admin/dashboard.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}pending:{{.Data.PendingCount}} approved:{{.Data.ApprovedCount}} codes:{{len .Data.Codes}}{{end}}`),
		},
	}

	r, err := render.New(render.Config{TemplatesFS: templates, SessionManager: sm})
	if err != nil {
		t.Fatalf("failed to create test renderer: %v", err)
	}
	return r
}

// testFeedCache creates a feed cache over a short-lived memory cache.
func testFeedCache(t *testing.T, db *sql.DB) *cache.FeedCache {
	t.Helper()
	mem := cache.NewSimpleMemoryCache(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })
	return cache.NewFeedCache(mem, store.New(db))
}

// testEnv bundles the pieces most handler tests need.
type testEnv struct {
	db        *sql.DB
	sm        *scs.SessionManager
	renderer  *render.Renderer
	feedCache *cache.FeedCache
}

// newTestEnv creates a database, session manager, renderer and feed cache.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	sm := testSessionManager(t)
	return &testEnv{
		db:        db,
		sm:        sm,
		renderer:  testRenderer(t, sm),
		feedCache: testFeedCache(t, db),
	}
}

// createTestConfession inserts a confession row directly.
func createTestConfession(t *testing.T, db *sql.DB, content string, approved bool) int64 {
	t.Helper()

	status := "pending"
	if approved {
		status = "approved"
	}

	now := time.Now()
	res, err := db.Exec(
		`INSERT INTO confessions (content, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		content, status, now, now,
	)
	if err != nil {
		t.Fatalf("failed to create test confession: %v", err)
	}

	id, _ := res.LastInsertId()
	return id
}

// createTestAdmin creates an admin account with a real password hash.
func createTestAdmin(t *testing.T, db *sql.DB, username, password string) int64 {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash test password: %v", err)
	}

	res, err := db.Exec(
		`INSERT INTO admins (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, hash, time.Now(),
	)
	if err != nil {
		t.Fatalf("failed to create test admin: %v", err)
	}

	id, _ := res.LastInsertId()
	return id
}

// createTestCode inserts an activation code row directly.
func createTestCode(t *testing.T, db *sql.DB, value string, active bool) int64 {
	t.Helper()

	res, err := db.Exec(
		`INSERT INTO activation_codes (code, is_active, created_at) VALUES (?, ?, ?)`,
		value, active, time.Now(),
	)
	if err != nil {
		t.Fatalf("failed to create test code: %v", err)
	}

	id, _ := res.LastInsertId()
	return id
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// requestWithSession wraps a request with session context.
func requestWithSession(sm *scs.SessionManager, r *http.Request) *http.Request {
	ctx, err := sm.Load(r.Context(), "")
	if err != nil {
		return r
	}
	return r.WithContext(ctx)
}

// assertStatus checks if the response status code matches the expected value.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

// assertRedirect checks for a 303 redirect to the expected location.
func assertRedirect(t *testing.T, rr interface {
	Header() http.Header
}, code int, location string) {
	t.Helper()
	if code != http.StatusSeeOther {
		t.Errorf("status = %d; want %d", code, http.StatusSeeOther)
	}
	if got := rr.Header().Get("Location"); got != location {
		t.Errorf("Location = %q; want %q", got, location)
	}
}
