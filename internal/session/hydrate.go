package session

import (
	"context"
	"time"

	"donorlink.org/internal/obs"
	"donorlink.org/internal/token"
)

// Hydrate runs the startup initialization protocol exactly once per
// process and returns the resulting snapshot. Later calls return the
// current state without re-running the sequence, so token mutation can
// never trigger a refresh loop.
//
// The sequence is strictly ordered: persisted token → expiry check →
// silent refresh → profile fetch → loading=false. Every failure inside
// it is normalized to "no session" (or "token without user" for a failed
// profile fetch) and logged; nothing escapes to the caller.
func (s *Store) Hydrate(ctx context.Context) Snapshot {
	s.hydrateOnce.Do(func() { s.hydrate(ctx) })
	return s.Snapshot()
}

func (s *Store) hydrate(ctx context.Context) {
	defer s.finishLoading()

	gen := s.generation()

	creds, found, err := s.keys.Load()
	if err != nil {
		s.logHydration("keystore_read_failed", err)
		obs.ObserveHydration("guest")
		return
	}
	if !found || creds.AccessToken == "" {
		// No persisted token: stay guest, no refresh attempt.
		obs.ObserveHydration("guest")
		return
	}

	switch {
	case !token.Expired(creds.AccessToken, s.now()):
		// Adopt as-is; already persisted.
		s.adoptIfCurrent(gen, creds.AccessToken, nil, false)
		obs.ObserveHydration("restored")
	default:
		fresh, user, err := s.backend.Refresh(ctx)
		if err != nil {
			// A single failed refresh is terminal for this load; the
			// user re-authenticates interactively.
			s.logHydration("refresh_failed", err)
			obs.ObserveRefresh("failed")
			obs.ObserveHydration("refresh_failed")
			s.clearIfCurrent(gen)
			return
		}
		obs.ObserveRefresh("ok")
		obs.ObserveHydration("refreshed")
		if !s.adoptIfCurrent(gen, fresh, user, true) {
			return
		}
		s.publish(EventRefresh)
	}

	snap := s.Snapshot()
	if snap.AccessToken == "" {
		return
	}
	profile, err := s.backend.Profile(ctx, snap.AccessToken)
	if err != nil {
		// Token and user may legitimately disagree: keep the token,
		// leave the user as whatever the refresh step produced.
		s.logHydration("profile_fetch_failed", err)
		return
	}
	s.setUserIfCurrent(gen, profile)
}

func (s *Store) logHydration(msg string, err error) {
	entry := map[string]any{
		"ts":    s.now().UTC().Format(time.RFC3339Nano),
		"level": "warn",
		"msg":   msg,
	}
	if err != nil {
		entry["error"] = err.Error()
	}
	obs.LogEvent(entry)
}
