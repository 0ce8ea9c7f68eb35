// Package api is the HTTP client for the remote donation backend. It is
// the only place the application talks to the network; the session store
// drives it through the session.Backend interface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"donorlink.org/internal/ids"
	"donorlink.org/internal/keystore"
	"donorlink.org/internal/session"
)

const headerRequestID = "X-Request-Id"

// ErrRefreshFailed normalizes every silent-refresh failure: transport
// errors, non-2xx statuses, and malformed bodies all look the same to
// the hydration sequence, which treats them as "not authenticated".
var ErrRefreshFailed = errors.New("api: token refresh failed")

// ErrNotSuccessful indicates the backend answered but flagged the
// operation as unsuccessful.
var ErrNotSuccessful = errors.New("api: backend reported failure")

// LoginError carries the user-visible message for a rejected interactive
// login.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string {
	if e.Message == "" {
		return "login failed"
	}
	return e.Message
}

// Config configures the backend client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RefreshCookieName string
}

// Client wraps resty with the backend's envelope conventions and the
// cookie-based refresh credential. The refresh cookie is held in the
// client's jar (the browser analog of an http-only cookie) and mirrored
// to the keystore so a new process can still refresh silently.
type Client struct {
	http       *resty.Client
	keys       *keystore.Store
	cookieName string
}

// New builds a client and seeds its cookie jar from the keystore.
func New(cfg Config, keys *keystore.Store) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base URL is required")
	}
	cookieName := cfg.RefreshCookieName
	if cookieName == "" {
		cookieName = "refreshToken"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	c := &Client{http: rc, keys: keys, cookieName: cookieName}

	if keys != nil {
		creds, found, err := keys.Load()
		if err != nil {
			return nil, err
		}
		if found && creds.RefreshCookie != "" {
			rc.SetCookie(&http.Cookie{Name: cookieName, Value: creds.RefreshCookie, Path: "/"})
		}
	}
	return c, nil
}

// Login authenticates interactively. On success the backend also sets
// the refresh cookie, which is captured and persisted. Failures are
// surfaced as a LoginError; the session store is never touched here.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out loginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		SetBody(loginRequest{Email: strings.TrimSpace(email), Password: password}).
		SetResult(&out).
		SetError(&out).
		Post("/api/auth/login")
	if err != nil {
		return "", fmt.Errorf("api: login: %w", err)
	}
	if !resp.IsSuccess() || !out.IsSuccess || out.Token == "" {
		return "", &LoginError{Message: out.Message}
	}
	c.captureRefreshCookie(resp)
	return out.Token, nil
}

// Refresh exchanges the refresh cookie for a fresh token and the user it
// belongs to. One shot, no retry: a failure is terminal for this page
// load and the caller falls back to interactive login.
func (c *Client) Refresh(ctx context.Context) (string, *session.User, error) {
	var out refreshResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		SetResult(&out).
		Post("/api/auth/refresh")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if !resp.IsSuccess() || out.Token == "" {
		return "", nil, fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode())
	}
	c.captureRefreshCookie(resp)
	return out.Token, out.User.toUser(), nil
}

// Profile fetches the full user record with a bearer token. A backend
// "not successful" answer is an error here; the session store maps it to
// a nil user while keeping the token.
func (c *Client) Profile(ctx context.Context, accessToken string) (*session.User, error) {
	var out profileResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		SetAuthToken(accessToken).
		SetResult(&out).
		Get("/api/users/profile")
	if err != nil {
		return nil, fmt.Errorf("api: profile: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("api: profile: status %d", resp.StatusCode())
	}
	if !out.IsSuccess || out.Data == nil {
		return nil, fmt.Errorf("api: profile: %w", ErrNotSuccessful)
	}
	return out.Data.toUser(), nil
}

// Logout tells the backend to revoke the refresh credential and drops
// the local cookie. Best effort: a transport failure still clears local
// state.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		Post("/api/auth/logout")
	// Drop both cookie stores: explicitly-set cookies and the jar that
	// captured Set-Cookie responses.
	c.http.Cookies = nil
	if jar, jerr := cookiejar.New(nil); jerr == nil {
		c.http.SetCookieJar(jar)
	}
	if c.keys != nil {
		if kerr := c.keys.SetRefreshCookie(""); kerr != nil && err == nil {
			err = kerr
		}
	}
	return err
}

// Donors lists donors matching an optional blood type filter.
func (c *Client) Donors(ctx context.Context, accessToken, bloodType string) ([]Donor, error) {
	var out donorsResponse
	req := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		SetResult(&out)
	if accessToken != "" {
		req.SetAuthToken(accessToken)
	}
	if bloodType != "" {
		req.SetQueryParam("bloodType", bloodType)
	}
	resp, err := req.Get("/api/donors")
	if err := checkList(resp, err, out.IsSuccess); err != nil {
		return nil, fmt.Errorf("api: donors: %w", err)
	}
	return out.Data, nil
}

// Events lists upcoming donation drives.
func (c *Client) Events(ctx context.Context) ([]Event, error) {
	var out eventsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		SetResult(&out).
		Get("/api/events")
	if err := checkList(resp, err, out.IsSuccess); err != nil {
		return nil, fmt.Errorf("api: events: %w", err)
	}
	return out.Data, nil
}

// Blogs lists published articles.
func (c *Client) Blogs(ctx context.Context) ([]BlogPost, error) {
	var out blogsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		SetResult(&out).
		Get("/api/blogs")
	if err := checkList(resp, err, out.IsSuccess); err != nil {
		return nil, fmt.Errorf("api: blogs: %w", err)
	}
	return out.Data, nil
}

// CreateBlog publishes a new article (staff only; the backend enforces
// it, the client guard only pre-filters the view).
func (c *Client) CreateBlog(ctx context.Context, accessToken string, post BlogPost) (*BlogPost, error) {
	var out blogResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		SetAuthToken(accessToken).
		SetBody(post).
		SetResult(&out).
		Post("/api/blogs")
	if err := checkList(resp, err, out.IsSuccess); err != nil {
		return nil, fmt.Errorf("api: create blog: %w", err)
	}
	return out.Data, nil
}

// UpdateBlog replaces an existing article.
func (c *Client) UpdateBlog(ctx context.Context, accessToken string, post BlogPost) (*BlogPost, error) {
	var out blogResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		SetAuthToken(accessToken).
		SetBody(post).
		SetResult(&out).
		Put("/api/blogs/" + post.ID)
	if err := checkList(resp, err, out.IsSuccess); err != nil {
		return nil, fmt.Errorf("api: update blog: %w", err)
	}
	return out.Data, nil
}

// DeleteBlog removes an article.
func (c *Client) DeleteBlog(ctx context.Context, accessToken, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		SetAuthToken(accessToken).
		Delete("/api/blogs/" + id)
	if err != nil {
		return fmt.Errorf("api: delete blog: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("api: delete blog: status %d", resp.StatusCode())
	}
	return nil
}

// Donations returns the member's donation history.
func (c *Client) Donations(ctx context.Context, accessToken string) ([]Donation, error) {
	var out donationsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		SetAuthToken(accessToken).
		SetResult(&out).
		Get("/api/donations")
	if err := checkList(resp, err, out.IsSuccess); err != nil {
		return nil, fmt.Errorf("api: donations: %w", err)
	}
	return out.Data, nil
}

// Ping probes backend reachability for the readiness endpoint. Any HTTP
// answer counts as reachable; only transport failures do not.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, ids.New()).
		Get("/api/health")
	if err != nil {
		return fmt.Errorf("api: ping: %w", err)
	}
	return nil
}

// captureRefreshCookie mirrors a (re)issued refresh cookie to the
// keystore. In-process replay is handled by the client's cookie jar;
// the persisted copy only matters for the next process start.
func (c *Client) captureRefreshCookie(resp *resty.Response) {
	if c.keys == nil || resp == nil {
		return
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == c.cookieName && ck.Value != "" {
			_ = c.keys.SetRefreshCookie(ck.Value)
			return
		}
	}
}

func checkList(resp *resty.Response, err error, isSuccess bool) error {
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	if !isSuccess {
		return ErrNotSuccessful
	}
	return nil
}
