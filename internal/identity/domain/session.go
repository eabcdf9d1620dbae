package domain

import "time"

// Session binds an opaque browser cookie handle to an account. The handle
// itself is never stored, only its fingerprint. A session holds a non-owning
// reference to the account: validation re-checks the account's active flag
// on every use.
type Session struct {
	ID         string
	TokenHash  string
	AccountID  string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// IdleExpired reports whether the session has been unused longer than the
// idle window.
func (s Session) IdleExpired(now time.Time, idle time.Duration) bool {
	return now.Sub(s.LastSeenAt) > idle
}
