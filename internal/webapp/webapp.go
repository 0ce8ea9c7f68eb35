// Package webapp is the local gateway serving the application's views:
// a route table dispatching to JSON view models, with the route guard
// applied per protected path.
package webapp

import (
	"context"
	"net/http"

	"donorlink.org/internal/api"
	"donorlink.org/internal/obs"
	"donorlink.org/internal/session"
	"donorlink.org/internal/stream"
)

// Backend is the slice of the API client the views consume.
type Backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context, accessToken string) (*session.User, error)
	Donors(ctx context.Context, accessToken, bloodType string) ([]api.Donor, error)
	Events(ctx context.Context) ([]api.Event, error)
	Blogs(ctx context.Context) ([]api.BlogPost, error)
	CreateBlog(ctx context.Context, accessToken string, post api.BlogPost) (*api.BlogPost, error)
	UpdateBlog(ctx context.Context, accessToken string, post api.BlogPost) (*api.BlogPost, error)
	DeleteBlog(ctx context.Context, accessToken, id string) error
	Donations(ctx context.Context, accessToken string) ([]api.Donation, error)
	Ping(ctx context.Context) error
}

// Config tunes the gateway.
type Config struct {
	Version            string
	RateLimitPerSecond int
	RateLimitBurst     int
}

// App wires the session store, the backend client, and the route table.
type App struct {
	mux      *http.ServeMux
	sessions *session.Store
	backend  Backend
	events   *stream.Stream[session.Event]
	cfg      Config
}

// New builds the route table. Public paths carry no guard; protected
// paths name their allow-list here, mirroring the application's
// navigation structure.
func New(sessions *session.Store, backend Backend, events *stream.Stream[session.Event], cfg Config) *App {
	a := &App{
		mux:      http.NewServeMux(),
		sessions: sessions,
		backend:  backend,
		events:   events,
		cfg:      cfg,
	}

	staff := []session.Role{session.RoleStaff, session.RoleAdmin}
	admin := []session.Role{session.RoleAdmin}

	// Infrastructure.
	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReadyz)
	a.mux.Handle("/metrics", obs.Handler())

	// Session lifecycle.
	a.mux.HandleFunc("/session", a.handleSession)
	a.mux.HandleFunc("/session/login", a.handleLogin)
	a.mux.HandleFunc("/session/logout", a.handleLogout)
	a.mux.HandleFunc("/session/events", a.handleSessionEvents)

	// Navigation targets for guard redirects, plus registration.
	a.mux.HandleFunc("/login", a.handleLoginPage)
	a.mux.HandleFunc("/register", a.handleRegisterPage)
	a.mux.HandleFunc("/forbidden", a.handleForbiddenPage)

	// Public views.
	a.mux.HandleFunc("/views/events", a.handleEvents)
	a.mux.HandleFunc("/views/compatibility", a.handleCompatibility)

	// Blog browsing is public; management lives under /staff.
	a.mux.HandleFunc("/views/blog", a.handleBlogCollection)

	// Authenticated views (any role).
	a.mux.HandleFunc("/views/profile", a.guarded(a.handleProfile))
	a.mux.HandleFunc("/views/donors", a.guarded(a.handleDonors))
	a.mux.HandleFunc("/views/history", a.guarded(a.handleHistory))

	// Staff and admin areas.
	a.mux.HandleFunc("/staff/blog", a.guarded(a.handleStaffBlog, staff...))
	a.mux.HandleFunc("/staff/blog/", a.guarded(a.handleStaffBlogResource, staff...))
	a.mux.HandleFunc("/admin/users", a.guarded(a.handleAdminUsers, admin...))
	a.mux.HandleFunc("/admin/overview", a.guarded(a.handleAdminOverview, admin...))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			writeError(w, r, http.StatusNotFound, "page not found")
			return
		}
		a.handleHome(w, r)
	})

	return a
}

// Handler returns the full middleware chain.
func (a *App) Handler() http.Handler {
	var h http.Handler = a.mux
	if a.cfg.RateLimitPerSecond > 0 {
		h = RateLimit(h, a.cfg.RateLimitBurst, a.cfg.RateLimitPerSecond)
	}
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
