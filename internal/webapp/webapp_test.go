package webapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"donorlink.org/internal/api"
	"donorlink.org/internal/keystore"
	"donorlink.org/internal/session"
	"donorlink.org/internal/stream"
)

// fakeBackend implements both webapp.Backend and session.Backend.
type fakeBackend struct {
	loginToken string
	loginErr   error
	user       *session.User
	profileErr error

	donors    []api.Donor
	events    []api.Event
	blogs     []api.BlogPost
	donations []api.Donation
	pingErr   error

	created *api.BlogPost
	deleted string
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.loginToken, nil
}

func (f *fakeBackend) Logout(ctx context.Context) error { return nil }

func (f *fakeBackend) Refresh(ctx context.Context) (string, *session.User, error) {
	return "", nil, api.ErrRefreshFailed
}

func (f *fakeBackend) Profile(ctx context.Context, accessToken string) (*session.User, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.user, nil
}

func (f *fakeBackend) Donors(ctx context.Context, accessToken, bloodType string) ([]api.Donor, error) {
	return f.donors, nil
}

func (f *fakeBackend) Events(ctx context.Context) ([]api.Event, error) { return f.events, nil }

func (f *fakeBackend) Blogs(ctx context.Context) ([]api.BlogPost, error) { return f.blogs, nil }

func (f *fakeBackend) CreateBlog(ctx context.Context, accessToken string, post api.BlogPost) (*api.BlogPost, error) {
	post.ID = "post-1"
	f.created = &post
	return &post, nil
}

func (f *fakeBackend) UpdateBlog(ctx context.Context, accessToken string, post api.BlogPost) (*api.BlogPost, error) {
	return &post, nil
}

func (f *fakeBackend) DeleteBlog(ctx context.Context, accessToken, id string) error {
	f.deleted = id
	return nil
}

func (f *fakeBackend) Donations(ctx context.Context, accessToken string) ([]api.Donation, error) {
	return f.donations, nil
}

func (f *fakeBackend) Ping(ctx context.Context) error { return f.pingErr }

type testApp struct {
	app      *App
	sessions *session.Store
	backend  *fakeBackend
}

// newTestApp builds an app with an already-hydrated guest session.
func newTestApp(t *testing.T) testApp {
	t.Helper()
	keys, err := keystore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("keystore.Open: %v", err)
	}
	backend := &fakeBackend{}
	sessions := session.New(keys, backend)
	sessions.Hydrate(context.Background())
	app := New(sessions, backend, stream.New[session.Event](), Config{Version: "test"})
	return testApp{app: app, sessions: sessions, backend: backend}
}

func (ta testApp) loginAs(t *testing.T, role session.Role) {
	t.Helper()
	if err := ta.sessions.Adopt("tok-test", &session.User{ID: "u-1", DisplayName: "Dana", Role: role}); err != nil {
		t.Fatalf("Adopt: %v", err)
	}
}

func doRequest(app *App, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)
	return rr
}

func do(app *App, method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)
	return rr
}
