package webapp

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"donorlink.org/internal/api"
	"donorlink.org/internal/audit"
	"donorlink.org/internal/bloodtype"
	"donorlink.org/internal/session"
)

type sessionView struct {
	Authenticated bool          `json:"authenticated"`
	Loading       bool          `json:"loading"`
	User          *session.User `json:"user,omitempty"`
}

func viewOf(snap session.Snapshot) sessionView {
	return sessionView{
		Authenticated: snap.Authenticated(),
		Loading:       snap.Loading,
		User:          snap.User,
	}
}

type loginViewRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- Infrastructure ---

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "donorlink-gateway",
		"version": a.cfg.Version,
	})
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.backend.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  "backend unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "donorlink-gateway",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.cfg.Version,
	})
}

// Navigation targets the guard redirects to. They render as view models;
// the UI shell owns the markup.
func (a *App) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"view": "login"})
}

func (a *App) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"view": "register"})
}

func (a *App) handleForbiddenPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"view": "forbidden"})
}

// --- Session lifecycle ---

func (a *App) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(a.sessions.Snapshot()))
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginViewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	token, err := a.backend.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var loginErr *api.LoginError
		if errors.As(err, &loginErr) {
			// Interactive auth failure: surfaced to the user, session
			// untouched.
			writeError(w, r, http.StatusUnauthorized, loginErr.Error())
			return
		}
		writeError(w, r, http.StatusBadGateway, "login service unavailable")
		return
	}

	user, err := a.backend.Profile(r.Context(), token)
	if err != nil {
		// Token without user is a legal transient state.
		user = nil
	}
	if err := a.sessions.Adopt(token, user); err != nil {
		writeError(w, r, http.StatusInternalServerError, "session persistence failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "session.login", map[string]any{
		"role": roleOf(a.sessions.Snapshot()),
	})
	writeJSON(w, http.StatusOK, viewOf(a.sessions.Snapshot()))
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	_ = a.backend.Logout(r.Context())
	if err := a.sessions.Logout(); err != nil {
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "session.logout", nil)
	w.WriteHeader(http.StatusNoContent)
}

// --- Public views ---

func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	events, err := a.backend.Events(r.Context())
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "events unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

func (a *App) handleBlogCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	posts, err := a.backend.Blogs(r.Context())
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "blog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": posts})
}

func (a *App) handleCompatibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	raw := r.URL.Query().Get("type")
	if raw == "" {
		matrix := make(map[string][]bloodtype.Type, len(bloodtype.All))
		for _, t := range bloodtype.All {
			matrix[string(t)] = bloodtype.RecipientsOf(t)
		}
		writeJSON(w, http.StatusOK, map[string]any{"donates_to": matrix})
		return
	}
	t, err := bloodtype.Parse(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown blood type")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":         t,
		"donates_to":   bloodtype.RecipientsOf(t),
		"receives_from": bloodtype.DonorsFor(t),
	})
}

// --- Authenticated views ---

func (a *App) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	snap := a.sessions.Snapshot()
	user, err := a.backend.Profile(r.Context(), snap.AccessToken)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "profile unavailable")
		return
	}
	a.sessions.SetUser(user)
	writeJSON(w, http.StatusOK, user)
}

func (a *App) handleDonors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	filter := r.URL.Query().Get("bloodType")
	if filter != "" {
		t, err := bloodtype.Parse(filter)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unknown blood type")
			return
		}
		filter = string(t)
	}
	snap := a.sessions.Snapshot()
	donors, err := a.backend.Donors(r.Context(), snap.AccessToken, filter)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "donor search unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": donors})
}

func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	snap := a.sessions.Snapshot()
	donations, err := a.backend.Donations(r.Context(), snap.AccessToken)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "donation history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": donations})
}

// --- Staff area ---

func (a *App) handleStaffBlog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.handleBlogCollection(w, r)
	case http.MethodPost:
		a.createBlog(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *App) createBlog(w http.ResponseWriter, r *http.Request) {
	var post api.BlogPost
	if err := decodeJSON(w, r, &post); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(post.Title) == "" {
		writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}
	snap := a.sessions.Snapshot()
	created, err := a.backend.CreateBlog(r.Context(), snap.AccessToken, post)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "blog service unavailable")
		return
	}
	_ = audit.LogEvent(r.Context(), "blog.created", map[string]any{"title": post.Title})
	writeJSON(w, http.StatusCreated, created)
}

func (a *App) handleStaffBlogResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/staff/blog/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "post not found")
		return
	}
	snap := a.sessions.Snapshot()

	switch r.Method {
	case http.MethodPut:
		var post api.BlogPost
		if err := decodeJSON(w, r, &post); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		post.ID = id
		updated, err := a.backend.UpdateBlog(r.Context(), snap.AccessToken, post)
		if err != nil {
			writeError(w, r, http.StatusBadGateway, "blog service unavailable")
			return
		}
		_ = audit.LogEvent(r.Context(), "blog.updated", map[string]any{"id": id})
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := a.backend.DeleteBlog(r.Context(), snap.AccessToken, id); err != nil {
			writeError(w, r, http.StatusBadGateway, "blog service unavailable")
			return
		}
		_ = audit.LogEvent(r.Context(), "blog.deleted", map[string]any{"id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}

// --- Admin area ---

// handleAdminUsers serves the user management view. The backend exposes
// the registered roster through the donor listing; the admin view reads
// it unfiltered.
func (a *App) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	snap := a.sessions.Snapshot()
	users, err := a.backend.Donors(r.Context(), snap.AccessToken, "")
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "user list unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}

func (a *App) handleAdminOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":           a.cfg.Version,
		"session":           viewOf(a.sessions.Snapshot()),
		"event_subscribers": a.events.Subscribers(),
	})
}
