// Package guard decides whether a navigation to a protected view may
// proceed. The decision is a UX convenience only: the backend enforces
// authorization on every request, so a wrong client-side decision can
// never widen access, only redirect awkwardly.
package guard

import "donorlink.org/internal/session"

// Outcome is the guard's verdict for one navigation.
type Outcome int

const (
	// Allow renders the requested view.
	Allow Outcome = iota
	// Defer postpones the decision while the session is still hydrating;
	// deciding now would misclassify a restoring session as logged out.
	Defer
	// RedirectLogin sends an unauthenticated visitor to the login page.
	RedirectLogin
	// RedirectForbidden sends an authenticated but under-privileged user
	// to the forbidden page.
	RedirectForbidden
)

// String names the outcome for logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Defer:
		return "defer"
	case RedirectLogin:
		return "redirect_login"
	case RedirectForbidden:
		return "redirect_forbidden"
	default:
		return "unknown"
	}
}

// Decide evaluates a fresh session snapshot against a required-role
// allow-list. It must be called on every protected navigation; the role
// can change across logins within the same process lifetime, so the
// result is never cached. An empty allow-list admits any authenticated
// user.
func Decide(snap session.Snapshot, allow []session.Role) Outcome {
	if snap.Loading {
		return Defer
	}
	if snap.User == nil {
		return RedirectLogin
	}
	if len(allow) == 0 {
		return Allow
	}
	for _, role := range allow {
		if snap.User.Role == role {
			return Allow
		}
	}
	return RedirectForbidden
}
