package webapp

import (
	"net/http"

	"donorlink.org/internal/audit"
	"donorlink.org/internal/guard"
	"donorlink.org/internal/obs"
	"donorlink.org/internal/session"
)

// guarded gates a view handler behind the route guard. The decision is
// re-evaluated on every request from a fresh session snapshot — never
// cached — because the role can change across logins within the same
// process lifetime.
func (a *App) guarded(next http.HandlerFunc, allow ...session.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := a.sessions.Snapshot()
		outcome := guard.Decide(snap, allow)
		obs.ObserveGuard(outcome.String())

		switch outcome {
		case guard.Allow:
			ctx := r.Context()
			if snap.User != nil {
				ctx = audit.WithActor(ctx, snap.User.ID)
			}
			next(w, r.WithContext(ctx))
		case guard.Defer:
			// Session is still hydrating; deciding now would bounce a
			// restoring user to the login page.
			w.Header().Set("Retry-After", "1")
			writeError(w, r, http.StatusServiceUnavailable, "session is loading")
		case guard.RedirectLogin:
			a.redirect(w, r, "/login", http.StatusUnauthorized, "authentication required")
		case guard.RedirectForbidden:
			_ = audit.LogEvent(r.Context(), "guard.denied", map[string]any{
				"path": r.URL.Path,
				"role": roleOf(snap),
			})
			a.redirect(w, r, "/forbidden", http.StatusForbidden, "insufficient role")
		}
	}
}

// redirect sends browser navigations (GET) to the target page and
// answers programmatic calls with a JSON error.
func (a *App) redirect(w http.ResponseWriter, r *http.Request, target string, code int, msg string) {
	if r.Method == http.MethodGet {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	writeError(w, r, code, msg)
}

func roleOf(snap session.Snapshot) string {
	if snap.User == nil {
		return string(session.RoleGuest)
	}
	return string(snap.User.Role)
}
