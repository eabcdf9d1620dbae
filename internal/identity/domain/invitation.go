package domain

import "time"

// Invitation pre-provisions an account for an email address that has not
// logged in yet. At most one live (unexpired, unconsumed) invitation exists
// per email; consumption deletes the record, so a token redeems exactly once.
type Invitation struct {
	ID        string
	Email     string // stored normalized (lower case)
	Role      Role   // role assigned when the invitation is consumed
	TokenHash string // SHA-256 fingerprint of the opaque token; raw token is never stored
	InvitedBy string
	InvitedAt time.Time
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// Live reports whether the invitation can still be consumed at the given
// instant.
func (i Invitation) Live(now time.Time) bool {
	return now.Before(i.ExpiresAt)
}
