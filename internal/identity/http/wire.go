package http

import (
	"time"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/atriumhq/atrium/pkg/identitysdk"
)

func accountResponse(a domain.Account) identitysdk.AccountResponse {
	return identitysdk.AccountResponse{
		ID:            a.ID,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		Role:          a.Role.String(),
		IsActive:      a.IsActive,
		IsProvisioned: a.IsProvisioned,
		InvitedBy:     a.InvitedByID,
		InvitedAt:     rfc3339OrEmpty(a.InvitedAt),
		ActivatedAt:   rfc3339OrEmpty(a.ActivatedAt),
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
}

func invitationInfo(inv domain.Invitation, now time.Time) identitysdk.InvitationInfo {
	return identitysdk.InvitationInfo{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      inv.Role.String(),
		InvitedBy: inv.InvitedBy,
		InvitedAt: inv.InvitedAt.Format(time.RFC3339),
		ExpiresAt: inv.ExpiresAt.Format(time.RFC3339),
		Expired:   !inv.Live(now),
	}
}

func rfc3339OrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
