package session

import (
	"context"
	"sync"
	"time"

	"donorlink.org/internal/keystore"
	"donorlink.org/internal/obs"
	"donorlink.org/internal/stream"
)

// EventType labels a session state transition.
type EventType string

const (
	EventLogin    EventType = "login"
	EventLogout   EventType = "logout"
	EventRefresh  EventType = "refresh"
	EventHydrated EventType = "hydrated"
)

// Event is broadcast whenever the session changes, so views such as the
// navigation bar can react without polling.
type Event struct {
	Type EventType `json:"type"`
	Role Role      `json:"role"`
	At   time.Time `json:"at"`
}

// Backend is the slice of the API client the session lifecycle needs.
type Backend interface {
	// Refresh exchanges the out-of-band refresh credential for a fresh
	// token and the user it belongs to.
	Refresh(ctx context.Context) (string, *User, error)
	// Profile fetches the full user record using a bearer token.
	Profile(ctx context.Context, accessToken string) (*User, error)
}

// Snapshot is a point-in-time copy of the session handed to readers.
// The guard re-reads it on every navigation; it is never cached.
type Snapshot struct {
	AccessToken string
	User        *User
	Loading     bool
}

// Authenticated reports whether a user record is present.
func (s Snapshot) Authenticated() bool { return s.User != nil }

// Store is the single authoritative holder of authentication state.
// It is constructed once by the entry point and passed by reference;
// there is no package-level instance. All mutation is serialized through
// its methods, and in-flight backend results are discarded when a logout
// has bumped the generation in the meantime.
type Store struct {
	mu      sync.Mutex
	token   string
	user    *User
	loading bool
	gen     uint64

	keys    *keystore.Store
	backend Backend
	events  *stream.Stream[Event]
	now     func() time.Time

	hydrateOnce sync.Once
}

// Option configures optional Store collaborators.
type Option func(*Store)

// WithClock overrides the time source (tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithEvents attaches a broadcast stream for session change events.
func WithEvents(st *stream.Stream[Event]) Option {
	return func(s *Store) { s.events = st }
}

// New creates an empty store in the loading state. Loading stays true
// until the one-time Hydrate pass completes.
func New(keys *keystore.Store, backend Backend, opts ...Option) *Store {
	s := &Store{
		keys:    keys,
		backend: backend,
		loading: true,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{AccessToken: s.token, User: cloneUser(s.user), Loading: s.loading}
}

// SetToken replaces the access token wholesale and mirrors it to durable
// storage. An empty token removes the persisted value. No validation is
// performed here; callers supply a well-formed token or empty string.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return s.keys.SetAccessToken(token)
}

// SetUser replaces the user record. A token without a user is a legal
// transient state (profile fetch failed after a valid token was adopted).
func (s *Store) SetUser(u *User) {
	s.mu.Lock()
	s.user = cloneUser(u)
	s.mu.Unlock()
}

// Adopt installs the result of a successful interactive login and
// announces it.
func (s *Store) Adopt(token string, u *User) error {
	s.mu.Lock()
	s.token = token
	s.user = cloneUser(u)
	s.mu.Unlock()
	s.publish(EventLogin)
	return s.keys.SetAccessToken(token)
}

// Logout clears the session, bumps the generation so stale in-flight
// responses are discarded, and removes every persisted credential.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.gen++
	s.mu.Unlock()
	s.publish(EventLogout)
	return s.keys.Clear()
}

// generation returns the current mutation generation.
func (s *Store) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// adoptIfCurrent applies a hydration result unless a logout raced it.
func (s *Store) adoptIfCurrent(gen uint64, token string, u *User, persist bool) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.token = token
	if u != nil {
		s.user = cloneUser(u)
	}
	s.mu.Unlock()
	if persist {
		if err := s.keys.SetAccessToken(token); err != nil {
			obs.LogEvent(map[string]any{
				"ts":    s.now().UTC().Format(time.RFC3339Nano),
				"level": "warn",
				"msg":   "session_token_persist_failed",
				"error": err.Error(),
			})
		}
	}
	return true
}

// setUserIfCurrent applies a profile fetch result unless a logout raced it.
func (s *Store) setUserIfCurrent(gen uint64, u *User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.user = cloneUser(u)
	return true
}

// clearIfCurrent empties the session after a failed refresh unless a
// logout already did.
func (s *Store) clearIfCurrent(gen uint64) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	_ = s.keys.Clear()
}

func (s *Store) finishLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	s.publish(EventHydrated)
}

func (s *Store) publish(t EventType) {
	if s.events == nil {
		return
	}
	snap := s.Snapshot()
	role := RoleGuest
	if snap.User != nil {
		role = snap.User.Role
	}
	s.events.Publish(Event{Type: t, Role: role, At: s.now().UTC()})
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}
