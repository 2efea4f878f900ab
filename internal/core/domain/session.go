package domain

import "time"

// Session binds an opaque token to one user for a fixed window.
// Only TokenDigest is persisted; the plain token is returned once at login.
type Session struct {
	TokenDigest string
	UserID      string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// ValidAt reports whether the session is still usable at now.
func (s *Session) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
