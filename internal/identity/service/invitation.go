package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/atriumhq/atrium/internal/identity/store"
	"github.com/atriumhq/atrium/pkg/cryptox"
	"github.com/atriumhq/atrium/pkg/idx"
	"github.com/atriumhq/atrium/pkg/slogx"
)

// DefaultInvitationTTL applies when the configured TTL is zero.
const DefaultInvitationTTL = 7 * 24 * time.Hour

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// InvitationService owns the lifecycle of pre-provisioned, not-yet-activated
// accounts: token issuance, expiry, and exactly-once consumption.
type InvitationService struct {
	Store      store.Store
	DefaultTTL time.Duration
}

func (s *InvitationService) ttl(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	if s.DefaultTTL > 0 {
		return s.DefaultTTL
	}
	return DefaultInvitationTTL
}

// Create issues an invitation for email with the given role. The returned
// token is the only copy that will ever exist; the store keeps just its
// fingerprint. A live invitation for the same email fails with
// ErrDuplicateInvitation; an expired leftover is rotated in place.
func (s *InvitationService) Create(
	ctx context.Context,
	email string,
	role domain.Role,
	issuerID string,
	ttl time.Duration,
) (string, domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", domain.Invitation{}, ErrInvalidIdentity
	}
	if !role.Valid() {
		return "", domain.Invitation{}, domain.ErrInvalidRole
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl(ttl))

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invitation token", slog.Any("error", err))
		return "", domain.Invitation{}, err
	}

	inv := domain.Invitation{
		ID:        idx.New().String(),
		Email:     email,
		Role:      role,
		TokenHash: cryptox.FingerprintToken(token),
		InvitedBy: issuerID,
		InvitedAt: now,
		ExpiresAt: expiresAt,
		UpdatedAt: now,
	}

	existing, err := s.Store.Invitations().GetInvitationByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Live(now) {
			log.Warn("duplicate invitation rejected",
				slog.String("invitation_id", existing.ID),
			)
			return "", domain.Invitation{}, ErrDuplicateInvitation
		}
		// An expired leftover occupies the email slot: rotate it rather
		// than inserting a second row.
		if err := s.Store.Invitations().RotateInvitation(
			ctx, email, role, inv.TokenHash, issuerID, expiresAt, now,
		); err != nil {
			return "", domain.Invitation{}, err
		}
		inv.ID = existing.ID
		inv.InvitedAt = existing.InvitedAt

	case errors.Is(err, store.ErrNotFound):
		if err := s.Store.Invitations().CreateInvitation(ctx, inv); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				// Lost a creation race; treat it like the live-duplicate case.
				return "", domain.Invitation{}, ErrDuplicateInvitation
			}
			return "", domain.Invitation{}, err
		}

	default:
		return "", domain.Invitation{}, err
	}

	log.Info("invitation created",
		slog.String("invitation_id", inv.ID),
		slog.String("role", role.String()),
		slog.Time("expires_at", expiresAt),
	)

	return token, inv, nil
}

// Resend rotates the token of the existing invitation for email and resets
// its expiry. It never creates a second record.
func (s *InvitationService) Resend(
	ctx context.Context,
	email string,
	issuerID string,
	ttl time.Duration,
) (string, domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)

	existing, err := s.Store.Invitations().GetInvitationByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.Invitation{}, ErrInvitationNotFound
		}
		return "", domain.Invitation{}, err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invitation token", slog.Any("error", err))
		return "", domain.Invitation{}, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl(ttl))
	tokenHash := cryptox.FingerprintToken(token)

	if err := s.Store.Invitations().RotateInvitation(
		ctx, email, existing.Role, tokenHash, issuerID, expiresAt, now,
	); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.Invitation{}, ErrInvitationNotFound
		}
		return "", domain.Invitation{}, err
	}

	existing.TokenHash = tokenHash
	existing.InvitedBy = issuerID
	existing.ExpiresAt = expiresAt
	existing.UpdatedAt = now

	log.Info("invitation re-sent",
		slog.String("invitation_id", existing.ID),
		slog.Time("expires_at", expiresAt),
	)

	return token, existing, nil
}

// Consume redeems a token exactly once, returning the invitation it
// belonged to. The redemption itself is a single conditional delete: of any
// number of concurrent callers, one wins and the rest see
// ErrInvitationNotFound. An expired token is rejected with
// ErrInvitationExpired and the record left in place for admins to re-send.
func (s *InvitationService) Consume(
	ctx context.Context,
	token string,
	now time.Time,
) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	hash := cryptox.FingerprintToken(token)

	inv, err := s.Store.Invitations().ConsumeInvitationByTokenHash(ctx, hash, now.UTC())
	if err == nil {
		log.Info("invitation consumed", slog.String("invitation_id", inv.ID))
		return inv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Invitation{}, err
	}

	// Nothing live matched. The follow-up read only classifies the failure;
	// the delete above was the consumption.
	if _, err := s.Store.Invitations().GetInvitationByTokenHash(ctx, hash); err == nil {
		log.Warn("expired invitation token presented")
		return domain.Invitation{}, ErrInvitationExpired
	}

	return domain.Invitation{}, ErrInvitationNotFound
}

// ListPending returns a page of unconsumed invitations, expired ones
// included so administrators can spot and re-send them. Pages are 1-based.
func (s *InvitationService) ListPending(ctx context.Context, page, pageSize int) ([]domain.Invitation, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return s.Store.Invitations().ListPendingInvitations(ctx, pageSize, (page-1)*pageSize)
}
