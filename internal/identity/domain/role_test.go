package domain_test

import (
	"testing"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want domain.Role
	}{
		{"employee", domain.RoleEmployee},
		{"manager", domain.RoleManager},
		{"admin", domain.RoleAdmin},
		{" Admin ", domain.RoleAdmin},
		{"MANAGER", domain.RoleManager},
	}

	for _, tc := range cases {
		got, err := domain.ParseRole(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got)
	}

	_, err := domain.ParseRole("owner")
	require.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = domain.ParseRole("")
	require.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestRoleOrdering(t *testing.T) {
	require.True(t, domain.RoleAdmin.AtLeast(domain.RoleManager))
	require.True(t, domain.RoleAdmin.AtLeast(domain.RoleAdmin))
	require.True(t, domain.RoleManager.AtLeast(domain.RoleEmployee))
	require.False(t, domain.RoleEmployee.AtLeast(domain.RoleManager))
	require.False(t, domain.RoleManager.AtLeast(domain.RoleAdmin))
}

func TestRoleRoundTrip(t *testing.T) {
	for _, r := range []domain.Role{domain.RoleEmployee, domain.RoleManager, domain.RoleAdmin} {
		parsed, err := domain.ParseRole(r.String())
		require.NoError(t, err)
		require.Equal(t, r, parsed)
		require.True(t, r.Valid())
	}

	require.False(t, domain.Role(0).Valid())
	require.Equal(t, "unknown", domain.Role(99).String())
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "bob@co.com", domain.NormalizeEmail("  Bob@Co.COM "))
}

func TestEmailDomain(t *testing.T) {
	require.Equal(t, "co.com", domain.EmailDomain("bob@CO.com"))
	require.Equal(t, "", domain.EmailDomain("no-at-sign"))
	require.Equal(t, "", domain.EmailDomain("trailing@"))
}
