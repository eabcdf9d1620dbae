package store

import (
	"context"
	"errors"
	"time"

	"github.com/atriumhq/atrium/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// postgres if the deployment ever outgrows it) implement this. Sub-repos are
// exposed as methods so multi-step operations can be scoped to a Tx.
type Store interface {
	Accounts() Accounts
	Invitations() Invitations
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Preferred over Tx for most callers.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail looks an account up case-insensitively.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// CreateAccount inserts a new account as a single atomic statement.
	// Returns ErrAlreadyExists when the unique email constraint trips;
	// callers recover by re-reading, never by overwriting.
	CreateAccount(ctx context.Context, a domain.Account) error

	// ActivateAccount sets activated_at and the display name if and only if
	// activated_at is still unset. The timestamp is written at most once;
	// ErrNotFound when the account is missing or already activated, so a
	// caller that lost an activation race can tell and re-read.
	ActivateAccount(ctx context.Context, id, displayName string, now time.Time) error

	// UpdateRole sets the role and bumps updated_at.
	UpdateRole(ctx context.Context, id string, role domain.Role, now time.Time) error

	// SetActive flips the active flag. Deactivation preserves history.
	SetActive(ctx context.Context, id string, active bool, now time.Time) error

	// ListAccounts returns accounts ordered by creation, newest first.
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error)

	// CountActiveAdmins returns the number of active accounts holding the
	// admin role. Used by the last-admin lockout guard.
	CountActiveAdmins(ctx context.Context) (int, error)
}

type Invitations interface {
	// CreateInvitation inserts a new invitation. Returns ErrAlreadyExists
	// when a record (live or expired) already occupies the email slot.
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetInvitationByEmail returns the invitation for an email regardless
	// of expiry. ErrNotFound when none exists.
	GetInvitationByEmail(ctx context.Context, email string) (domain.Invitation, error)

	// GetInvitationByTokenHash returns the invitation matching a token
	// fingerprint regardless of expiry.
	GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error)

	// RotateInvitation replaces the token, role, issuer and expiry of the
	// existing record for email in place. ErrNotFound when none exists.
	RotateInvitation(ctx context.Context, email string, role domain.Role, tokenHash, invitedBy string, expiresAt, now time.Time) error

	// ConsumeInvitationByTokenHash atomically deletes the live invitation
	// matching the fingerprint and returns it. The conditional delete is a
	// single statement: under concurrent callers at most one succeeds, the
	// rest get ErrNotFound. Expired records are never consumed.
	ConsumeInvitationByTokenHash(ctx context.Context, hash string, now time.Time) (domain.Invitation, error)

	// ConsumeInvitationByEmail is the same atomic check-and-delete keyed by
	// email, used by the login callback path.
	ConsumeInvitationByEmail(ctx context.Context, email string, now time.Time) (domain.Invitation, error)

	// ListPendingInvitations returns unconsumed invitations, including
	// expired ones so administrators can spot and re-send them. Newest
	// first.
	ListPendingInvitations(ctx context.Context, limit, offset int) ([]domain.Invitation, error)

	// DeleteInvitationsExpiredBefore sweeps invitations whose expiry is
	// older than cutoff. Housekeeping only; login logic already ignores
	// expired records.
	DeleteInvitationsExpiredBefore(ctx context.Context, cutoff time.Time) error
}

type Sessions interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByTokenHash returns the session matching a handle
	// fingerprint.
	GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error)

	// TouchSession updates last_seen_at on successful validation.
	TouchSession(ctx context.Context, id string, now time.Time) error

	// DeleteSessionByTokenHash revokes a single session server-side.
	DeleteSessionByTokenHash(ctx context.Context, hash string) error

	// DeleteSessionsForAccount revokes every session of an account, e.g.
	// on administrative deactivation.
	DeleteSessionsForAccount(ctx context.Context, accountID string) error

	// DeleteSessionsIdleBefore sweeps sessions unused since cutoff.
	// Housekeeping only; validation applies the idle window lazily.
	DeleteSessionsIdleBefore(ctx context.Context, cutoff time.Time) error
}
