package service

import "errors"

// The error taxonomy of the identity core. Handlers map these onto stable
// wire reason codes; nothing downstream inspects error strings.
var (
	ErrDomainNotAllowed    = errors.New("email domain not allowed")
	ErrUserInactive        = errors.New("account is deactivated")
	ErrInvitationExpired   = errors.New("invitation has expired")
	ErrInvitationNotFound  = errors.New("invitation not found or already consumed")
	ErrDuplicateInvitation = errors.New("a live invitation already exists for this email")
	ErrDuplicateEmail      = errors.New("an account already exists for this email")
	ErrSessionInvalid      = errors.New("session is expired, revoked, or unknown")
	ErrRoleInsufficient    = errors.New("insufficient role for this operation")

	ErrAccountNotFound = errors.New("account not found")
	ErrLastAdmin       = errors.New("cannot demote the last remaining admin")
	ErrInvalidIdentity = errors.New("provider identity is missing a usable email")
)
