package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/atriumhq/atrium/internal/identity/store"
	"github.com/atriumhq/atrium/internal/identity/store/drivers/sqlite"
	"github.com/atriumhq/atrium/pkg/idx"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedAccount(t *testing.T, st store.Store, email string, role domain.Role, active bool) domain.Account {
	t.Helper()

	now := time.Now().UTC()
	activatedAt := now
	a := domain.Account{
		ID:          idx.New().String(),
		Email:       domain.NormalizeEmail(email),
		DisplayName: email,
		Role:        role,
		IsActive:    active,
		ActivatedAt: &activatedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, st.Accounts().CreateAccount(context.Background(), a))
	return a
}
