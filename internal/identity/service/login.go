package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/atriumhq/atrium/internal/identity/store"
	"github.com/atriumhq/atrium/pkg/idx"
	"github.com/atriumhq/atrium/pkg/slogx"
)

// LoginService runs the post-authentication callback flow: given a verified
// provider identity it applies the domain policy, finds or provisions the
// account, and issues a session.
type LoginService struct {
	Store    store.Store
	Policy   *DomainPolicy
	Sessions *SessionService

	// AdminEmail bootstraps the first administrator. An account provisioned
	// for exactly this address (checked on every login, not just the first)
	// starts as admin instead of employee.
	AdminEmail string
}

// LoginResult is what a successful callback produces.
type LoginResult struct {
	Account      domain.Account
	SessionToken string

	// ExpiredInvitationIgnored is set when the email had an invitation on
	// file that had already lapsed. The login still succeeds with the
	// default role; the flag lets the handler surface a hint.
	ExpiredInvitationIgnored bool
}

// HandleCallback is the single entry point for a completed external
// authentication. It is safe to call concurrently for the same identity;
// racing first logins converge on one account.
func (s *LoginService) HandleCallback(ctx context.Context, ident domain.Identity) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	email := domain.NormalizeEmail(ident.Email)
	if email == "" || !strings.Contains(email, "@") {
		return LoginResult{}, ErrInvalidIdentity
	}
	ident.Email = email

	if !s.Policy.Allowed(email) {
		log.Warn("login rejected by domain policy",
			slog.String("email_domain", domain.EmailDomain(email)),
		)
		return LoginResult{}, ErrDomainNotAllowed
	}

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	switch {
	case err == nil:
		return s.finishExisting(ctx, account, ident)
	case errors.Is(err, store.ErrNotFound):
		// First login for this identity, fall through to provisioning.
	default:
		return LoginResult{}, err
	}

	account, ignoredExpired, err := s.provision(ctx, ident)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a first-login race. The winner's account row is authoritative;
		// re-read it and continue as an existing-account login.
		account, err = s.Store.Accounts().GetAccountByEmail(ctx, email)
		if err != nil {
			return LoginResult{}, err
		}
		return s.finishExisting(ctx, account, ident)
	}
	if err != nil {
		return LoginResult{}, err
	}

	token, _, err := s.Sessions.Issue(ctx, account.ID)
	if err != nil {
		return LoginResult{}, err
	}

	log.Info("first login completed",
		slog.String("account_id", account.ID),
		slog.String("role", account.Role.String()),
		slog.Bool("invited", account.IsProvisioned),
	)

	return LoginResult{
		Account:                  account,
		SessionToken:             token,
		ExpiredInvitationIgnored: ignoredExpired,
	}, nil
}

// finishExisting completes a login for an account that already exists.
func (s *LoginService) finishExisting(
	ctx context.Context,
	account domain.Account,
	ident domain.Identity,
) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	if !account.IsActive {
		log.Warn("login rejected for deactivated account",
			slog.String("account_id", account.ID),
		)
		return LoginResult{}, ErrUserInactive
	}

	// A provisioned account activates on its first real login.
	if !account.Activated() {
		account, err := s.activateFirstLogin(ctx, account, ident)
		if err != nil {
			return LoginResult{}, err
		}

		token, _, err := s.Sessions.Issue(ctx, account.ID)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{Account: account, SessionToken: token}, nil
	}

	token, _, err := s.Sessions.Issue(ctx, account.ID)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Account: account, SessionToken: token}, nil
}

// activateFirstLogin completes the first real login of a pre-provisioned
// account. Any live invitation on file for the email is consumed in the same
// transaction that writes the activation timestamp, and its role wins over
// the provisioned one. The activation update is conditional on activatedAt
// being unset; a caller that loses a concurrent first login rolls back and
// returns the winner's row.
func (s *LoginService) activateFirstLogin(
	ctx context.Context,
	account domain.Account,
	ident domain.Identity,
) (domain.Account, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		inv, err := tx.Invitations().ConsumeInvitationByEmail(ctx, account.Email, now)
		switch {
		case err == nil:
			if inv.Role != account.Role {
				if err := tx.Accounts().UpdateRole(ctx, account.ID, inv.Role, now); err != nil {
					return err
				}
				account.Role = inv.Role
			}
		case errors.Is(err, store.ErrNotFound):
			// No live invitation to retire. Expired leftovers stay on file
			// for administrators and age out with housekeeping.
		default:
			return err
		}

		return tx.Accounts().ActivateAccount(ctx, account.ID, ident.DisplayName, now)
	})
	switch {
	case err == nil:
		account.ActivatedAt = &now
		if ident.DisplayName != "" {
			account.DisplayName = ident.DisplayName
		}
		account.UpdatedAt = now
		log.Info("account activated", slog.String("account_id", account.ID))
		return account, nil
	case errors.Is(err, store.ErrNotFound):
		// A concurrent login activated the account between our read and this
		// transaction. Everything rolled back; the winner's row stands.
		return s.Store.Accounts().GetAccountByID(ctx, account.ID)
	default:
		return domain.Account{}, err
	}
}

// provision creates the account for a first login. Consuming the invitation
// and creating the account happen in one transaction so a crash between the
// two cannot burn the invitation without producing an account.
func (s *LoginService) provision(
	ctx context.Context,
	ident domain.Identity,
) (domain.Account, bool, error) {
	log := slogx.FromContext(ctx)

	var (
		account        domain.Account
		ignoredExpired bool
	)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now().UTC()

		role := domain.RoleEmployee
		if s.AdminEmail != "" && ident.Email == domain.NormalizeEmail(s.AdminEmail) {
			role = domain.RoleAdmin
		}

		account = domain.Account{
			ID:          idx.New().String(),
			Email:       ident.Email,
			DisplayName: ident.DisplayName,
			Role:        role,
			IsActive:    true,
			ActivatedAt: &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		inv, err := tx.Invitations().ConsumeInvitationByEmail(ctx, ident.Email, now)
		switch {
		case err == nil:
			account.Role = inv.Role
			account.IsProvisioned = true
			account.InvitedByID = inv.InvitedBy
			invitedAt := inv.InvitedAt
			account.InvitedAt = &invitedAt
		case errors.Is(err, store.ErrNotFound):
			// No live invitation. If an expired one is on file we note it
			// and proceed with the default role.
			if _, lookErr := tx.Invitations().GetInvitationByEmail(ctx, ident.Email); lookErr == nil {
				ignoredExpired = true
				log.Info("expired invitation ignored at first login")
			}
		default:
			return err
		}

		return tx.Accounts().CreateAccount(ctx, account)
	})
	if err != nil {
		return domain.Account{}, false, err
	}

	return account, ignoredExpired, nil
}
