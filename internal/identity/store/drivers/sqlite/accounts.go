package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/atriumhq/atrium/internal/identity/domain"
)

type accountsRepo struct {
	q querier
}

const accountCols = `id, email, display_name, role, is_active, is_provisioned,
	invited_by, invited_at, activated_at, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var (
		a           domain.Account
		role        string
		invitedBy   sql.NullString
		invitedAt   sql.NullTime
		activatedAt sql.NullTime
	)

	err := row.Scan(
		&a.ID, &a.Email, &a.DisplayName, &role, &a.IsActive, &a.IsProvisioned,
		&invitedBy, &invitedAt, &activatedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}

	a.Role, err = domain.ParseRole(role)
	if err != nil {
		return domain.Account{}, err
	}

	a.InvitedByID = mapNullString(invitedBy)
	if invitedAt.Valid {
		t := invitedAt.Time
		a.InvitedAt = &t
	}
	if activatedAt.Valid {
		t := activatedAt.Time
		a.ActivatedAt = &t
	}

	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)

	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	// The email column is COLLATE NOCASE, so the comparison is
	// case-insensitive even for callers that skipped normalization.
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE email = ?`, email)

	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	var invitedAt, activatedAt sql.NullTime
	if a.InvitedAt != nil {
		invitedAt = sql.NullTime{Time: *a.InvitedAt, Valid: true}
	}
	if a.ActivatedAt != nil {
		activatedAt = sql.NullTime{Time: *a.ActivatedAt, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (id, email, display_name, role, is_active, is_provisioned,
			invited_by, invited_at, activated_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.DisplayName, a.Role.String(), a.IsActive, a.IsProvisioned,
		mapStringNull(a.InvitedByID), invitedAt, activatedAt, a.CreatedAt, a.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *accountsRepo) ActivateAccount(ctx context.Context, id, displayName string, now time.Time) error {
	// Conditional on activated_at IS NULL: the timestamp is written at most
	// once. Zero rows means the account is gone or someone else already
	// activated it; the caller decides which by re-reading.
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts
		SET activated_at = ?, display_name = ?, updated_at = ?
		WHERE id = ? AND activated_at IS NULL`,
		now, displayName, now, id,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *accountsRepo) UpdateRole(ctx context.Context, id string, role domain.Role, now time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET role = ?, updated_at = ? WHERE id = ?`,
		role.String(), now, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *accountsRepo) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, now, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *accountsRepo) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+accountCols+` FROM accounts ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *accountsRepo) CountActiveAdmins(ctx context.Context) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE role = ? AND is_active = 1`,
		domain.RoleAdmin.String()).Scan(&count)
	return count, err
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
