package sqlite

import (
	"context"
	"time"

	"github.com/atriumhq/atrium/internal/identity/domain"
)

type invitationsRepo struct {
	q querier
}

const invitationCols = `id, email, role, token_hash, invited_by, invited_at, expires_at, updated_at`

func scanInvitation(row interface{ Scan(...any) error }) (domain.Invitation, error) {
	var (
		inv  domain.Invitation
		role string
	)

	err := row.Scan(
		&inv.ID, &inv.Email, &role, &inv.TokenHash,
		&inv.InvitedBy, &inv.InvitedAt, &inv.ExpiresAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invitation{}, err
	}

	inv.Role, err = domain.ParseRole(role)
	if err != nil {
		return domain.Invitation{}, err
	}

	return inv, nil
}

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO invitations (id, email, role, token_hash, invited_by, invited_at, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Email, inv.Role.String(), inv.TokenHash,
		inv.InvitedBy, inv.InvitedAt, inv.ExpiresAt, inv.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *invitationsRepo) GetInvitationByEmail(ctx context.Context, email string) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+invitationCols+` FROM invitations WHERE email = ?`, email)

	inv, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+invitationCols+` FROM invitations WHERE token_hash = ?`, hash)

	inv, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) RotateInvitation(
	ctx context.Context,
	email string,
	role domain.Role,
	tokenHash, invitedBy string,
	expiresAt, now time.Time,
) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE invitations
		SET role = ?, token_hash = ?, invited_by = ?, expires_at = ?, updated_at = ?
		WHERE email = ?`,
		role.String(), tokenHash, invitedBy, expiresAt, now, email,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *invitationsRepo) ConsumeInvitationByTokenHash(
	ctx context.Context,
	hash string,
	now time.Time,
) (domain.Invitation, error) {
	// Single conditional DELETE: of any number of concurrent callers
	// presenting the same token, exactly one gets the row back.
	row := r.q.QueryRowContext(ctx, `
		DELETE FROM invitations
		WHERE token_hash = ? AND expires_at > ?
		RETURNING `+invitationCols,
		hash, now,
	)

	inv, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) ConsumeInvitationByEmail(
	ctx context.Context,
	email string,
	now time.Time,
) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx, `
		DELETE FROM invitations
		WHERE email = ? AND expires_at > ?
		RETURNING `+invitationCols,
		email, now,
	)

	inv, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) ListPendingInvitations(ctx context.Context, limit, offset int) ([]domain.Invitation, error) {
	// Consumed invitations are deleted, so every remaining row is pending;
	// expired ones are included deliberately for admin visibility.
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+invitationCols+` FROM invitations ORDER BY invited_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

func (r *invitationsRepo) DeleteInvitationsExpiredBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM invitations WHERE expires_at < ?`, cutoff)
	return err
}
