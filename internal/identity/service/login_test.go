package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/atriumhq/atrium/internal/identity/store"
)

func newLoginService(st store.Store, allowed []string, adminEmail string) *LoginService {
	return &LoginService{
		Store:      st,
		Policy:     NewDomainPolicy(allowed),
		Sessions:   &SessionService{Store: st, IdleTimeout: time.Hour},
		AdminEmail: adminEmail,
	}
}

func TestHandleCallbackInvitedFirstLogin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	issuer := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)

	invitations := &InvitationService{Store: st}
	_, _, err := invitations.Create(ctx, "hire@example.com", domain.RoleManager, issuer.ID, time.Hour)
	require.NoError(t, err)

	svc := newLoginService(st, []string{"example.com"}, "")

	res, err := svc.HandleCallback(ctx, domain.Identity{
		Email:       "Hire@Example.com",
		DisplayName: "New Hire",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionToken)
	require.False(t, res.ExpiredInvitationIgnored)

	a := res.Account
	require.Equal(t, "hire@example.com", a.Email)
	require.Equal(t, domain.RoleManager, a.Role)
	require.True(t, a.IsProvisioned)
	require.Equal(t, issuer.ID, a.InvitedByID)
	require.NotNil(t, a.InvitedAt)
	require.True(t, a.Activated())

	// The invitation was consumed with the login.
	_, err = st.Invitations().GetInvitationByEmail(ctx, "hire@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	// The session is immediately usable.
	got, _, err := svc.Sessions.Validate(ctx, res.SessionToken)
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
}

func TestHandleCallbackUninvitedDefaults(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	svc := newLoginService(st, []string{"example.com"}, "founder@example.com")

	t.Run("allowed domain gets employee", func(t *testing.T) {
		res, err := svc.HandleCallback(ctx, domain.Identity{
			Email:       "walkin@example.com",
			DisplayName: "Walk In",
		})
		require.NoError(t, err)
		require.Equal(t, domain.RoleEmployee, res.Account.Role)
		require.False(t, res.Account.IsProvisioned)
		require.True(t, res.Account.Activated())
	})

	t.Run("bootstrap admin email gets admin", func(t *testing.T) {
		res, err := svc.HandleCallback(ctx, domain.Identity{
			Email:       "Founder@example.com",
			DisplayName: "Founder",
		})
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, res.Account.Role)
	})
}

func TestHandleCallbackRejections(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	svc := newLoginService(st, []string{"example.com"}, "")

	t.Run("domain not allowed", func(t *testing.T) {
		_, err := svc.HandleCallback(ctx, domain.Identity{Email: "mallory@gmail.com"})
		require.ErrorIs(t, err, ErrDomainNotAllowed)
	})

	t.Run("unusable identity", func(t *testing.T) {
		_, err := svc.HandleCallback(ctx, domain.Identity{Email: ""})
		require.ErrorIs(t, err, ErrInvalidIdentity)

		_, err = svc.HandleCallback(ctx, domain.Identity{Email: "no-at-sign"})
		require.ErrorIs(t, err, ErrInvalidIdentity)
	})

	t.Run("deactivated account", func(t *testing.T) {
		seedAccount(t, st, "gone@example.com", domain.RoleEmployee, false)

		_, err := svc.HandleCallback(ctx, domain.Identity{Email: "gone@example.com"})
		require.ErrorIs(t, err, ErrUserInactive)
	})
}

func TestHandleCallbackExpiredInvitation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	issuer := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)

	invitations := &InvitationService{Store: st}
	_, _, err := invitations.Create(ctx, "late@example.com", domain.RoleManager, issuer.ID, time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	svc := newLoginService(st, []string{"example.com"}, "")

	res, err := svc.HandleCallback(ctx, domain.Identity{Email: "late@example.com"})
	require.NoError(t, err)
	require.True(t, res.ExpiredInvitationIgnored)
	require.Equal(t, domain.RoleEmployee, res.Account.Role)
	require.False(t, res.Account.IsProvisioned)

	// The lapsed record stays on file for administrators.
	_, err = st.Invitations().GetInvitationByEmail(ctx, "late@example.com")
	require.NoError(t, err)
}

func TestHandleCallbackActivationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	issuer := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)

	accounts := &AccountService{Store: st, Authz: &AuthzService{Store: st}}
	provisioned, err := accounts.CreateProvisioned(ctx, "pre@example.com", "", domain.RoleEmployee, issuer.ID)
	require.NoError(t, err)
	require.Nil(t, provisioned.ActivatedAt)

	svc := newLoginService(st, []string{"example.com"}, "")

	res1, err := svc.HandleCallback(ctx, domain.Identity{
		Email:       "pre@example.com",
		DisplayName: "Pre Provisioned",
	})
	require.NoError(t, err)
	require.NotNil(t, res1.Account.ActivatedAt)
	require.Equal(t, "Pre Provisioned", res1.Account.DisplayName)

	first := *res1.Account.ActivatedAt

	res2, err := svc.HandleCallback(ctx, domain.Identity{
		Email:       "pre@example.com",
		DisplayName: "Renamed Later",
	})
	require.NoError(t, err)

	got, err := accounts.GetByID(ctx, res2.Account.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ActivatedAt)
	require.True(t, got.ActivatedAt.Equal(first))
}

func TestHandleCallbackActivationConsumesInvitation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	issuer := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)

	// An administrator creates the account up front, then mints an
	// invitation for it with a higher role.
	accounts := &AccountService{Store: st, Authz: &AuthzService{Store: st}}
	provisioned, err := accounts.CreateProvisioned(ctx, "bob@example.com", "Bob", domain.RoleEmployee, issuer.ID)
	require.NoError(t, err)

	invitations := &InvitationService{Store: st}
	_, _, err = invitations.Create(ctx, "bob@example.com", domain.RoleManager, issuer.ID, time.Hour)
	require.NoError(t, err)

	svc := newLoginService(st, []string{"example.com"}, "")

	res, err := svc.HandleCallback(ctx, domain.Identity{
		Email:       "bob@example.com",
		DisplayName: "Bob B.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionToken)
	require.Equal(t, provisioned.ID, res.Account.ID)
	require.True(t, res.Account.Activated())

	// The invitation's role wins and the record is retired with the login.
	require.Equal(t, domain.RoleManager, res.Account.Role)
	_, err = st.Invitations().GetInvitationByEmail(ctx, "bob@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	pending, err := invitations.ListPending(ctx, 1, 50)
	require.NoError(t, err)
	require.Empty(t, pending)

	got, err := accounts.GetByID(ctx, provisioned.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleManager, got.Role)
}

func TestHandleCallbackActivationRaceLoserSeesWinner(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	issuer := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)

	accounts := &AccountService{Store: st, Authz: &AuthzService{Store: st}}
	provisioned, err := accounts.CreateProvisioned(ctx, "carol@example.com", "", domain.RoleEmployee, issuer.ID)
	require.NoError(t, err)

	svc := newLoginService(st, []string{"example.com"}, "")

	// Another login activates the row after our stale copy was read.
	first := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, st.Accounts().ActivateAccount(ctx, provisioned.ID, "Carol", first))

	res, err := svc.finishExisting(ctx, provisioned, domain.Identity{
		Email:       "carol@example.com",
		DisplayName: "Carol Renamed",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionToken)

	// The returned account reflects what the winner wrote, not the stale
	// copy patched locally.
	require.NotNil(t, res.Account.ActivatedAt)
	require.True(t, res.Account.ActivatedAt.Equal(first))
	require.Equal(t, "Carol", res.Account.DisplayName)
}

func TestHandleCallbackFirstLoginRaceConverges(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	svc := newLoginService(st, []string{"example.com"}, "")

	const attempts = 8
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]struct{}{}
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.HandleCallback(ctx, domain.Identity{
				Email:       "racer@example.com",
				DisplayName: "Racer",
			})
			if err != nil {
				return
			}
			mu.Lock()
			ids[res.Account.ID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Every successful login resolved to the same account row.
	require.Len(t, ids, 1)

	list, err := st.Accounts().ListAccounts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCreateProvisionedDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	issuer := seedAccount(t, st, "admin@example.com", domain.RoleAdmin, true)

	svc := &AccountService{Store: st, Authz: &AuthzService{Store: st}}

	_, err := svc.CreateProvisioned(ctx, "dupe@example.com", "First", domain.RoleEmployee, issuer.ID)
	require.NoError(t, err)

	_, err = svc.CreateProvisioned(ctx, "Dupe@Example.com", "Second", domain.RoleManager, issuer.ID)
	require.ErrorIs(t, err, ErrDuplicateEmail)
}
