package model

import "time"

// Identity is the authenticated user reference that owns meals and goals.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is either Authenticated or Unauthenticated.
type Session interface {
	isSession()
}

// Authenticated is a signed-in session backed by a bearer token.
type Authenticated struct {
	Identity  Identity
	Token     string
	ExpiresAt time.Time
}

// Unauthenticated is the logged-out state.
type Unauthenticated struct{}

func (Authenticated) isSession()   {}
func (Unauthenticated) isSession() {}

// Expired reports whether the session token has expired at now.
func (a Authenticated) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt)
}

// IdentityOf returns the identity of s if it is authenticated.
func IdentityOf(s Session) (Identity, bool) {
	a, ok := s.(Authenticated)
	if !ok || a.Identity.ID == "" {
		return Identity{}, false
	}
	return a.Identity, true
}
