package webapp

import (
	"net/http"
	"testing"

	"donorlink.org/internal/keystore"
	"donorlink.org/internal/session"
	"donorlink.org/internal/stream"
)

func TestGuardRedirectsGuestToLogin(t *testing.T) {
	ta := newTestApp(t)

	rr := do(ta.app, http.MethodGet, "/views/profile", "")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Fatalf("Location = %q, want /login", loc)
	}
}

func TestGuardAnswersNonGETWithJSONError(t *testing.T) {
	ta := newTestApp(t)

	rr := do(ta.app, http.MethodPost, "/staff/blog", `{"title":"x"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if loc := rr.Header().Get("Location"); loc != "" {
		t.Fatalf("unexpected redirect for POST: Location = %q", loc)
	}
}

func TestGuardAllowsAuthenticatedMember(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, session.RoleMember)

	rr := do(ta.app, http.MethodGet, "/views/profile", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rr.Code, rr.Body.String())
	}
}

func TestGuardForbidsMemberFromStaffArea(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, session.RoleMember)

	rr := do(ta.app, http.MethodGet, "/staff/blog", "")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if loc := rr.Header().Get("Location"); loc != "/forbidden" {
		t.Fatalf("Location = %q, want /forbidden", loc)
	}
}

func TestGuardAllowsStaffIntoStaffArea(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, session.RoleStaff)

	rr := do(ta.app, http.MethodGet, "/staff/blog", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rr.Code, rr.Body.String())
	}
}

func TestGuardAdminAreaExcludesStaff(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, session.RoleStaff)

	rr := do(ta.app, http.MethodGet, "/admin/overview", "")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}

	ta.loginAs(t, session.RoleAdmin)
	rr = do(ta.app, http.MethodGet, "/admin/overview", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", rr.Code)
	}
}

func TestGuardUserManagementIsAdminOnly(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, session.RoleMember)

	rr := do(ta.app, http.MethodGet, "/admin/users", "")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("member status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if loc := rr.Header().Get("Location"); loc != "/forbidden" {
		t.Fatalf("Location = %q, want /forbidden", loc)
	}

	ta.loginAs(t, session.RoleAdmin)
	rr = do(ta.app, http.MethodGet, "/admin/users", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", rr.Code)
	}
}

func TestGuardDefersWhileHydrating(t *testing.T) {
	keys, err := keystore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("keystore.Open: %v", err)
	}
	backend := &fakeBackend{}
	// No Hydrate call: the store is still in its loading state.
	sessions := session.New(keys, backend)
	app := New(sessions, backend, stream.New[session.Event](), Config{Version: "test"})

	rr := do(app, http.MethodGet, "/views/profile", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header while session is loading")
	}
}
