package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium/internal/identity/domain"
)

func TestInvitationCreate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	issuer := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)

	svc := &InvitationService{Store: st}

	t.Run("issues a token and stores only the fingerprint", func(t *testing.T) {
		token, inv, err := svc.Create(ctx, "New.Hire@Example.com", domain.RoleManager, issuer.ID, 0)
		require.NoError(t, err)
		require.NotEmpty(t, token)
		require.Equal(t, "new.hire@example.com", inv.Email)
		require.Equal(t, domain.RoleManager, inv.Role)
		require.NotEqual(t, token, inv.TokenHash)

		stored, err := st.Invitations().GetInvitationByEmail(ctx, "new.hire@example.com")
		require.NoError(t, err)
		require.Equal(t, inv.TokenHash, stored.TokenHash)
	})

	t.Run("rejects a second live invitation for the same email", func(t *testing.T) {
		_, _, err := svc.Create(ctx, "new.hire@example.com", domain.RoleEmployee, issuer.ID, 0)
		require.ErrorIs(t, err, ErrDuplicateInvitation)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, _, err := svc.Create(ctx, "not-an-email", domain.RoleEmployee, issuer.ID, 0)
		require.ErrorIs(t, err, ErrInvalidIdentity)

		_, _, err = svc.Create(ctx, "ok@example.com", domain.Role(42), issuer.ID, 0)
		require.ErrorIs(t, err, domain.ErrInvalidRole)
	})

	t.Run("rotates an expired leftover instead of failing", func(t *testing.T) {
		// Issue with a TTL so short the invitation is already expired.
		_, first, err := svc.Create(ctx, "slow@example.com", domain.RoleEmployee, issuer.ID, time.Nanosecond)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		token2, second, err := svc.Create(ctx, "slow@example.com", domain.RoleManager, issuer.ID, time.Hour)
		require.NoError(t, err)
		require.NotEmpty(t, token2)
		require.Equal(t, first.ID, second.ID)
		require.Equal(t, domain.RoleManager, second.Role)
		require.NotEqual(t, first.TokenHash, second.TokenHash)
	})
}

func TestInvitationResend(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	issuer := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)

	svc := &InvitationService{Store: st}

	t.Run("rotates token and expiry", func(t *testing.T) {
		token1, inv1, err := svc.Create(ctx, "hire@example.com", domain.RoleEmployee, issuer.ID, time.Hour)
		require.NoError(t, err)

		token2, inv2, err := svc.Resend(ctx, "hire@example.com", issuer.ID, 2*time.Hour)
		require.NoError(t, err)
		require.Equal(t, inv1.ID, inv2.ID)
		require.NotEqual(t, token1, token2)
		require.True(t, inv2.ExpiresAt.After(inv1.ExpiresAt))

		// The old token no longer redeems.
		_, err = svc.Consume(ctx, token1, time.Now().UTC())
		require.ErrorIs(t, err, ErrInvitationNotFound)

		inv, err := svc.Consume(ctx, token2, time.Now().UTC())
		require.NoError(t, err)
		require.Equal(t, inv1.ID, inv.ID)
	})

	t.Run("fails when no invitation exists", func(t *testing.T) {
		_, _, err := svc.Resend(ctx, "nobody@example.com", issuer.ID, 0)
		require.ErrorIs(t, err, ErrInvitationNotFound)
	})
}

func TestInvitationConsume(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	issuer := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)

	svc := &InvitationService{Store: st}

	t.Run("unknown token", func(t *testing.T) {
		_, err := svc.Consume(ctx, "never-issued", time.Now().UTC())
		require.ErrorIs(t, err, ErrInvitationNotFound)
	})

	t.Run("expired token is rejected but kept for re-send", func(t *testing.T) {
		token, _, err := svc.Create(ctx, "late@example.com", domain.RoleEmployee, issuer.ID, time.Nanosecond)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		_, err = svc.Consume(ctx, token, time.Now().UTC())
		require.ErrorIs(t, err, ErrInvitationExpired)

		// Still listed so an admin can rotate it.
		_, _, err = svc.Resend(ctx, "late@example.com", issuer.ID, time.Hour)
		require.NoError(t, err)
	})

	t.Run("exactly one of many concurrent redemptions wins", func(t *testing.T) {
		token, _, err := svc.Create(ctx, "race@example.com", domain.RoleEmployee, issuer.ID, time.Hour)
		require.NoError(t, err)

		const attempts = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Consume(ctx, token, time.Now().UTC()); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Equal(t, 1, successes)
	})
}

func TestInvitationListPending(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	issuer := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)

	svc := &InvitationService{Store: st}

	_, _, err := svc.Create(ctx, "a@example.com", domain.RoleEmployee, issuer.ID, time.Hour)
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, "b@example.com", domain.RoleEmployee, issuer.ID, time.Nanosecond)
	require.NoError(t, err)

	// Expired invitations stay visible until the housekeeping sweep.
	list, err := svc.ListPending(ctx, 1, 50)
	require.NoError(t, err)
	require.Len(t, list, 2)

	page, err := svc.ListPending(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)

	page2, err := svc.ListPending(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	require.NotEqual(t, page[0].ID, page2[0].ID)
}
