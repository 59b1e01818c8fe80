// Package otp implements the one-time-code password reset flow: issuance
// with rate limiting, verification with attempt limiting, and the
// transactional password change.
package otp

import (
	"time"

	"github.com/google/uuid"
)

const (
	// CodeTTL is how long an issued code stays valid.
	CodeTTL = 15 * time.Minute
	// MaxAttempts bounds verification attempts before a code is burned.
	MaxAttempts = 3
	// MaxCodesPerWindow bounds issuance per user inside RateWindow.
	MaxCodesPerWindow = 3
	// RateWindow is the trailing window for the issuance limit.
	RateWindow = time.Hour
)

// OneTimeCode is one password-reset code bound to a user. Every terminal
// state (verified, attempts exhausted, superseded) is stored as Used=true;
// expiry is derived from ExpiresAt, never stored as a flag.
type OneTimeCode struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Email     string
	Code      string
	Attempts  int
	Used      bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Active reports whether the code can still be verified at now.
func (c OneTimeCode) Active(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}
