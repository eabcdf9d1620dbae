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

// AccountService owns persistent user records: identity, role, activation
// state.
type AccountService struct {
	Store store.Store
	Authz *AuthzService
}

// GetByID fetches an account by id.
func (s *AccountService) GetByID(ctx context.Context, id string) (domain.Account, error) {
	a, err := s.Store.Accounts().GetAccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrAccountNotFound
	}
	return a, err
}

// FindByEmail looks an account up case-insensitively.
func (s *AccountService) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	a, err := s.Store.Accounts().GetAccountByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrAccountNotFound
	}
	return a, err
}

// CreateProvisioned pre-creates an account before the owning person has
// ever logged in. The account is active immediately but activatedAt stays
// unset until first login.
func (s *AccountService) CreateProvisioned(
	ctx context.Context,
	email, displayName string,
	role domain.Role,
	issuerID string,
) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Account{}, ErrInvalidIdentity
	}
	if !role.Valid() {
		return domain.Account{}, domain.ErrInvalidRole
	}

	now := time.Now().UTC()
	a := domain.Account{
		ID:            idx.New().String(),
		Email:         email,
		DisplayName:   displayName,
		Role:          role,
		IsActive:      true,
		IsProvisioned: true,
		InvitedByID:   issuerID,
		InvitedAt:     &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.Store.Accounts().CreateAccount(ctx, a); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrDuplicateEmail
		}
		return domain.Account{}, err
	}

	log.Info("account provisioned",
		slog.String("account_id", a.ID),
		slog.String("role", role.String()),
	)

	return a, nil
}

// SetRole changes an account's role after the authorization resolver
// approves the transition.
func (s *AccountService) SetRole(
	ctx context.Context,
	accountID string,
	newRole domain.Role,
	actingAccountID string,
) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	acting, err := s.GetByID(ctx, actingAccountID)
	if err != nil {
		return domain.Account{}, err
	}

	target, err := s.GetByID(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}

	if err := s.Authz.CanChangeRole(ctx, acting, target, newRole); err != nil {
		log.Warn("role change denied",
			slog.String("target_id", target.ID),
			slog.String("new_role", newRole.String()),
			slog.Any("reason", err),
		)
		return domain.Account{}, err
	}

	now := time.Now().UTC()
	if err := s.Store.Accounts().UpdateRole(ctx, target.ID, newRole, now); err != nil {
		return domain.Account{}, err
	}

	log.Info("role changed",
		slog.String("target_id", target.ID),
		slog.String("old_role", target.Role.String()),
		slog.String("new_role", newRole.String()),
	)

	target.Role = newRole
	target.UpdatedAt = now
	return target, nil
}

// SetActive flips an account's active flag. Deactivation keeps history and
// proactively revokes the account's outstanding sessions; validation would
// reject them on next use anyway, this just tidies up sooner.
func (s *AccountService) SetActive(ctx context.Context, accountID string, active bool) error {
	log := slogx.FromContext(ctx)

	now := time.Now().UTC()
	if err := s.Store.Accounts().SetActive(ctx, accountID, active, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	if !active {
		if err := s.Store.Sessions().DeleteSessionsForAccount(ctx, accountID); err != nil {
			log.Error("failed to purge sessions for deactivated account",
				slog.String("account_id", accountID),
				slog.Any("error", err),
			)
		}
	}

	log.Info("account active flag set",
		slog.String("account_id", accountID),
		slog.Bool("active", active),
	)
	return nil
}

// List returns a page of accounts for the admin user table. Pages are
// 1-based.
func (s *AccountService) List(ctx context.Context, page, pageSize int) ([]domain.Account, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return s.Store.Accounts().ListAccounts(ctx, pageSize, (page-1)*pageSize)
}
