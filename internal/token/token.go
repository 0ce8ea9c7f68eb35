package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed indicates the token could not be decoded at all.
var ErrMalformed = errors.New("token: malformed token")

// Claims carries the subset of JWT claims the client reads. The payload is
// decoded without signature verification: the backend is the enforcement
// point, and these values only drive UX decisions (pre-expiry refresh,
// role-based navigation hints).
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Decode extracts claims from a bearer token without verifying its
// signature. An empty or structurally invalid token yields ErrMalformed.
func Decode(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformed
	}
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, ErrMalformed
	}
	return claims, nil
}

// Expired reports whether the token is expired relative to now. Decoding
// failures and missing expiry claims fail closed: the token is treated as
// expired and the caller falls through to the refresh flow.
func Expired(raw string, now time.Time) bool {
	claims, err := Decode(raw)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !now.Before(claims.ExpiresAt.Time)
}
