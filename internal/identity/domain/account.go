package domain

import (
	"strings"
	"time"
)

// Account is a user record. Exactly one Account exists per email for the
// lifetime of the system; the unique email constraint in the store is the
// sole defence against duplicate-account races.
type Account struct {
	ID          string
	Email       string // stored normalized (lower case)
	DisplayName string
	Role        Role
	IsActive    bool

	// Provisioning lineage.
	IsProvisioned bool       // created by an admin before first login
	InvitedByID   string     // back-reference to the issuing admin, no ownership
	InvitedAt     *time.Time
	ActivatedAt   *time.Time // set at most once, at first successful login

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Activated reports whether the owning person has completed a login.
func (a Account) Activated() bool { return a.ActivatedAt != nil }

// NormalizeEmail canonicalizes an email address for lookup and storage.
// Email uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain returns the part after the final '@', lower case, or "" when
// the address has no domain part.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
