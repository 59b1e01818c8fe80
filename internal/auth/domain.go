package auth

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a server-side login session resolved from an opaque
// bearer token. Tokens are random, never signed claims.
type Session struct {
	Token     string
	UserID    uuid.UUID
	Email     string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}

// Active reports whether the session is still usable at now.
func (s Session) Active(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
