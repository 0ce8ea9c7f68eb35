package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"donorlink.org/internal/keystore"
	"donorlink.org/internal/session"
)

func newClient(t *testing.T, baseURL string) (*Client, *keystore.Store) {
	t.Helper()
	keys, err := keystore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("keystore.Open: %v", err)
	}
	c, err := New(Config{BaseURL: baseURL, RefreshCookieName: "refreshToken"}, keys)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, keys
}

func TestLoginPersistsRefreshCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		if req.Email != "dana@example.org" {
			t.Errorf("unexpected email: %q", req.Email)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("expected X-Request-Id header")
		}
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "rc-1", HttpOnly: true})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(loginResponse{IsSuccess: true, Token: "tok-1"})
	}))
	defer srv.Close()

	c, keys := newClient(t, srv.URL)
	tok, err := c.Login(context.Background(), "dana@example.org", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("unexpected token: %q", tok)
	}

	creds, found, err := keys.Load()
	if err != nil || !found {
		t.Fatalf("keystore: found=%v err=%v", found, err)
	}
	if creds.RefreshCookie != "rc-1" {
		t.Fatalf("refresh cookie not persisted: %q", creds.RefreshCookie)
	}
}

func TestLoginFailureSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(loginResponse{IsSuccess: false, Message: "wrong credentials"})
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	_, err := c.Login(context.Background(), "dana@example.org", "bad")
	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("expected LoginError, got %v", err)
	}
	if loginErr.Message != "wrong credentials" {
		t.Fatalf("unexpected message: %q", loginErr.Message)
	}
}

func TestRefreshReplaysPersistedCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("refreshToken")
		if err != nil || ck.Value != "rc-stored" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(refreshResponse{
			Token: "tok-new",
			User:  &profileData{ID: "u-1", FullName: "Dana", Role: "member"},
		})
	}))
	defer srv.Close()

	keys, err := keystore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("keystore.Open: %v", err)
	}
	if err := keys.SetRefreshCookie("rc-stored"); err != nil {
		t.Fatalf("seed cookie: %v", err)
	}
	c, err := New(Config{BaseURL: srv.URL, RefreshCookieName: "refreshToken"}, keys)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tok, user, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if tok != "tok-new" {
		t.Fatalf("unexpected token: %q", tok)
	}
	if user == nil || user.Role != session.RoleMember || user.DisplayName != "Dana" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestRefreshFailureIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	_, _, err := c.Refresh(context.Background())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}
}

func TestRefreshEmptyTokenIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(refreshResponse{})
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	_, _, err := c.Refresh(context.Background())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}
}

func TestLogoutDropsJarCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "rc-live", Path: "/", HttpOnly: true})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(loginResponse{IsSuccess: true, Token: "tok-1"})
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("refreshToken"); err == nil {
			t.Error("refresh cookie survived logout")
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, keys := newClient(t, srv.URL)
	if _, err := c.Login(context.Background(), "dana@example.org", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, _, err := c.Refresh(context.Background()); !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed after logout, got %v", err)
	}
	creds, _, err := keys.Load()
	if err != nil {
		t.Fatalf("keystore: %v", err)
	}
	if creds.RefreshCookie != "" {
		t.Fatalf("persisted refresh cookie survived logout: %q", creds.RefreshCookie)
	}
}

func TestProfileMapsFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected auth header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profileResponse{
			IsSuccess: true,
			Data: &profileData{
				ID: "u-1", FullName: "Dana", Role: "staff",
				BloodType: "O-", Email: "dana@example.org",
			},
		})
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	user, err := c.Profile(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if user.Role != session.RoleStaff || user.BloodType != "O-" || user.Email != "dana@example.org" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestProfileNotSuccessfulIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profileResponse{IsSuccess: false, Message: "account disabled"})
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	if _, err := c.Profile(context.Background(), "tok-1"); !errors.Is(err, ErrNotSuccessful) {
		t.Fatalf("expected ErrNotSuccessful, got %v", err)
	}
}

func TestUnknownRoleFallsBackToGuest(t *testing.T) {
	p := profileData{ID: "u", Role: "superuser"}
	if got := p.toUser().Role; got != session.RoleGuest {
		t.Fatalf("unknown role must map to guest, got %s", got)
	}
}
