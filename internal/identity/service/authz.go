package service

import (
	"context"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/atriumhq/atrium/internal/identity/store"
)

// AuthzService derives effective permissions for a request and enforces the
// role-ordering rules for role changes.
type AuthzService struct {
	Store store.Store
}

// RequireRole checks that account holds at least min. Role checks are
// ordered comparisons over Employee < Manager < Admin, never string
// equality, so inserting a role later does not break existing checks.
func (s *AuthzService) RequireRole(account domain.Account, min domain.Role) error {
	if !account.Role.AtLeast(min) {
		return ErrRoleInsufficient
	}
	return nil
}

// CanChangeRole decides whether acting may set target's role to newRole.
// Only admins change roles; the last remaining active admin may not demote
// themselves, which would lock everyone out of administration.
func (s *AuthzService) CanChangeRole(
	ctx context.Context,
	acting, target domain.Account,
	newRole domain.Role,
) error {
	if !newRole.Valid() {
		return domain.ErrInvalidRole
	}

	if !acting.Role.AtLeast(domain.RoleAdmin) {
		return ErrRoleInsufficient
	}

	demotingSelf := acting.ID == target.ID &&
		target.Role == domain.RoleAdmin &&
		!newRole.AtLeast(domain.RoleAdmin)

	if demotingSelf {
		admins, err := s.Store.Accounts().CountActiveAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	return nil
}
