package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/whisperwall/whisperwall/internal/middleware"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	lp := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	return NewAuthHandler(env.db, env.renderer, env.sm, lp), env
}

func TestLogin_Success(t *testing.T) {
	h, env := newAuthHandler(t)
	adminID := createTestAdmin(t, env.db, "admin", "correct horse battery staple")

	req := requestWithSession(env.sm, postForm("/admin/login", url.Values{
		"username": {"admin"},
		"password": {"correct horse battery staple"},
	}))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assertRedirect(t, rr, rr.Code, "/admin")

	if got := env.sm.GetInt64(req.Context(), SessionKeyAdminID); got != adminID {
		t.Errorf("session admin_id = %d; want %d", got, adminID)
	}

	var lastLogin any
	if err := env.db.QueryRow(`SELECT last_login_at FROM admins WHERE id = ?`, adminID).Scan(&lastLogin); err != nil {
		t.Fatal(err)
	}
	if lastLogin == nil {
		t.Error("last_login_at not updated on successful login")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h, env := newAuthHandler(t)
	createTestAdmin(t, env.db, "admin", "correct horse battery staple")

	req := requestWithSession(env.sm, postForm("/admin/login", url.Values{
		"username": {"admin"},
		"password": {"wrong password entirely"},
	}))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assertRedirect(t, rr, rr.Code, "/admin/login")

	if got := env.sm.GetInt64(req.Context(), SessionKeyAdminID); got != 0 {
		t.Errorf("session admin_id = %d; want 0 after failed login", got)
	}
}

func TestLogin_UnknownUsername(t *testing.T) {
	h, env := newAuthHandler(t)

	req := requestWithSession(env.sm, postForm("/admin/login", url.Values{
		"username": {"ghost"},
		"password": {"whatever password"},
	}))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	// Same redirect as a wrong password, so usernames cannot be probed
	assertRedirect(t, rr, rr.Code, "/admin/login")
}

func TestLogin_MissingFields(t *testing.T) {
	h, env := newAuthHandler(t)

	req := requestWithSession(env.sm, postForm("/admin/login", url.Values{"username": {"admin"}}))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assertRedirect(t, rr, rr.Code, "/admin/login")
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	h, env := newAuthHandler(t)
	createTestAdmin(t, env.db, "admin", "correct horse battery staple")

	for i := 0; i < 6; i++ {
		req := requestWithSession(env.sm, postForm("/admin/login", url.Values{
			"username": {"admin"},
			"password": {"wrong password entirely"},
		}))
		rr := httptest.NewRecorder()
		h.Login(rr, req)
	}

	// Even the correct password is rejected while locked
	req := requestWithSession(env.sm, postForm("/admin/login", url.Values{
		"username": {"admin"},
		"password": {"correct horse battery staple"},
	}))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assertRedirect(t, rr, rr.Code, "/admin/login")
	if got := env.sm.GetInt64(req.Context(), SessionKeyAdminID); got != 0 {
		t.Errorf("session admin_id = %d; want 0 while account locked", got)
	}
}

func TestLoginForm_RedirectsAuthenticated(t *testing.T) {
	h, env := newAuthHandler(t)

	req := requestWithSession(env.sm, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	env.sm.Put(req.Context(), SessionKeyAdminID, int64(1))

	rr := httptest.NewRecorder()
	h.LoginForm(rr, req)

	assertRedirect(t, rr, rr.Code, "/admin")
}

func TestLogout_DestroysSession(t *testing.T) {
	h, env := newAuthHandler(t)

	req := requestWithSession(env.sm, postForm("/admin/logout", url.Values{}))
	env.sm.Put(req.Context(), SessionKeyAdminID, int64(1))

	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	assertRedirect(t, rr, rr.Code, "/admin/login")
	if got := env.sm.GetInt64(req.Context(), SessionKeyAdminID); got != 0 {
		t.Errorf("session admin_id = %d; want 0 after logout", got)
	}
}
