package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium/internal/identity/domain"
)

func TestRequireRole(t *testing.T) {
	t.Parallel()

	svc := &AuthzService{}

	employee := domain.Account{Role: domain.RoleEmployee}
	manager := domain.Account{Role: domain.RoleManager}
	admin := domain.Account{Role: domain.RoleAdmin}

	require.NoError(t, svc.RequireRole(employee, domain.RoleEmployee))
	require.NoError(t, svc.RequireRole(manager, domain.RoleEmployee))
	require.NoError(t, svc.RequireRole(admin, domain.RoleManager))

	require.ErrorIs(t, svc.RequireRole(employee, domain.RoleManager), ErrRoleInsufficient)
	require.ErrorIs(t, svc.RequireRole(manager, domain.RoleAdmin), ErrRoleInsufficient)
}

func TestCanChangeRole(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	svc := &AuthzService{Store: st}

	admin := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)
	manager := seedAccount(t, st, "manager@example.com", domain.RoleManager, true)
	employee := seedAccount(t, st, "employee@example.com", domain.RoleEmployee, true)

	t.Run("non-admins cannot change roles", func(t *testing.T) {
		require.ErrorIs(t,
			svc.CanChangeRole(ctx, manager, employee, domain.RoleManager),
			ErrRoleInsufficient)
		require.ErrorIs(t,
			svc.CanChangeRole(ctx, employee, employee, domain.RoleAdmin),
			ErrRoleInsufficient)
	})

	t.Run("admins may promote and demote others", func(t *testing.T) {
		require.NoError(t, svc.CanChangeRole(ctx, admin, employee, domain.RoleAdmin))
		require.NoError(t, svc.CanChangeRole(ctx, admin, manager, domain.RoleEmployee))
	})

	t.Run("invalid target role is rejected", func(t *testing.T) {
		require.ErrorIs(t,
			svc.CanChangeRole(ctx, admin, employee, domain.Role(42)),
			domain.ErrInvalidRole)
	})

	t.Run("last admin cannot demote themselves", func(t *testing.T) {
		require.ErrorIs(t,
			svc.CanChangeRole(ctx, admin, admin, domain.RoleManager),
			ErrLastAdmin)

		// Keeping the admin role is fine.
		require.NoError(t, svc.CanChangeRole(ctx, admin, admin, domain.RoleAdmin))
	})

	t.Run("self-demotion allowed once another admin exists", func(t *testing.T) {
		seedAccount(t, st, "admin2@example.com", domain.RoleAdmin, true)
		require.NoError(t, svc.CanChangeRole(ctx, admin, admin, domain.RoleManager))
	})

	t.Run("deactivated admins do not count", func(t *testing.T) {
		accounts := &AccountService{Store: st, Authz: svc}

		other, err := accounts.FindByEmail(ctx, "admin2@example.com")
		require.NoError(t, err)
		require.NoError(t, accounts.SetActive(ctx, other.ID, false))

		require.ErrorIs(t,
			svc.CanChangeRole(ctx, admin, admin, domain.RoleEmployee),
			ErrLastAdmin)
	})
}

func TestAccountSetRole(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	authz := &AuthzService{Store: st}
	svc := &AccountService{Store: st, Authz: authz}

	admin := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)
	employee := seedAccount(t, st, "employee@example.com", domain.RoleEmployee, true)

	t.Run("admin promotes an employee", func(t *testing.T) {
		updated, err := svc.SetRole(ctx, employee.ID, domain.RoleManager, admin.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleManager, updated.Role)

		got, err := svc.GetByID(ctx, employee.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleManager, got.Role)
	})

	t.Run("non-admin is denied", func(t *testing.T) {
		_, err := svc.SetRole(ctx, admin.ID, domain.RoleEmployee, employee.ID)
		require.ErrorIs(t, err, ErrRoleInsufficient)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := svc.SetRole(ctx, "missing", domain.RoleManager, admin.ID)
		require.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("last admin demotion is blocked end to end", func(t *testing.T) {
		_, err := svc.SetRole(ctx, admin.ID, domain.RoleEmployee, admin.ID)
		require.ErrorIs(t, err, ErrLastAdmin)
	})
}
