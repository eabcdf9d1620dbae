package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/atriumhq/atrium/internal/identity/store"
	"github.com/atriumhq/atrium/pkg/cryptox"
	"github.com/atriumhq/atrium/pkg/idx"
	"github.com/atriumhq/atrium/pkg/slogx"
)

// DefaultSessionIdleTimeout applies when the configured timeout is zero.
const DefaultSessionIdleTimeout = 30 * time.Minute

// SessionService issues and validates opaque server-side sessions. The
// browser only ever holds a random token; every request resolves it against
// the store so revocation and deactivation take effect immediately.
type SessionService struct {
	Store       store.Store
	IdleTimeout time.Duration
}

func (s *SessionService) idle() time.Duration {
	if s.IdleTimeout > 0 {
		return s.IdleTimeout
	}
	return DefaultSessionIdleTimeout
}

// Issue mints a new session for accountID and returns the raw token. Like
// invitation tokens, only the fingerprint is stored.
func (s *SessionService) Issue(ctx context.Context, accountID string) (string, domain.Session, error) {
	log := slogx.FromContext(ctx)

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate session token", slog.Any("error", err))
		return "", domain.Session{}, err
	}

	now := time.Now().UTC()
	sess := domain.Session{
		ID:         idx.New().String(),
		TokenHash:  cryptox.FingerprintToken(token),
		AccountID:  accountID,
		CreatedAt:  now,
		LastSeenAt: now,
	}

	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return "", domain.Session{}, err
	}

	log.Info("session issued",
		slog.String("session_id", sess.ID),
		slog.String("account_id", accountID),
	)

	return token, sess, nil
}

// Validate resolves a raw token to its account, enforcing idle expiry and
// re-checking the account's active flag on every call. A valid call slides
// the idle window forward. All failure modes collapse into
// ErrSessionInvalid so callers cannot distinguish a revoked session from a
// never-issued token.
func (s *SessionService) Validate(ctx context.Context, token string) (domain.Account, domain.Session, error) {
	log := slogx.FromContext(ctx)

	if token == "" {
		return domain.Account{}, domain.Session{}, ErrSessionInvalid
	}

	hash := cryptox.FingerprintToken(token)
	now := time.Now().UTC()

	sess, err := s.Store.Sessions().GetSessionByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, domain.Session{}, ErrSessionInvalid
		}
		return domain.Account{}, domain.Session{}, err
	}

	if sess.IdleExpired(now, s.idle()) {
		// Lazy deletion. The housekeeping sweep would pick it up eventually;
		// doing it here keeps the table honest for sessions that do get used.
		if err := s.Store.Sessions().DeleteSessionByTokenHash(ctx, hash); err != nil {
			log.Error("failed to delete idle-expired session", slog.Any("error", err))
		}
		return domain.Account{}, domain.Session{}, ErrSessionInvalid
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, domain.Session{}, ErrSessionInvalid
		}
		return domain.Account{}, domain.Session{}, err
	}

	if !account.IsActive {
		log.Warn("session presented for deactivated account",
			slog.String("account_id", account.ID),
		)
		return domain.Account{}, domain.Session{}, ErrSessionInvalid
	}

	if err := s.Store.Sessions().TouchSession(ctx, sess.ID, now); err != nil {
		log.Error("failed to touch session", slog.Any("error", err))
	}
	sess.LastSeenAt = now

	return account, sess, nil
}

// Revoke deletes the session behind token. Revoking an unknown or already
// revoked token is a no-op; logout must always succeed.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	err := s.Store.Sessions().DeleteSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// RevokeAllForAccount drops every session belonging to accountID.
func (s *SessionService) RevokeAllForAccount(ctx context.Context, accountID string) error {
	return s.Store.Sessions().DeleteSessionsForAccount(ctx, accountID)
}
