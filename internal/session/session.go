// Package session persists the authenticated session between runs.
//
// State is kept in a small key-value store scoped to the API origin, so
// switching --api-url never leaks a token to another server.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

// ErrNoSession is returned by Load when nothing usable is persisted.
var ErrNoSession = errors.New("no session")

// Session is the authenticated principal and its bearer token. The role is
// fixed for the lifetime of the session.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Role returns the session role.
func (s *Session) Role() domain.Role {
	return s.User.Role
}

// TokenExpiry returns the exp claim of a JWT without verifying its
// signature. Opaque tokens and JWTs without exp report false.
func TokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the token carries an exp claim at or before now.
func Expired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	return ok && !now.Before(exp)
}
