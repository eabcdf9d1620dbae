package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/atriumhq/atrium/internal/identity/service"
	"github.com/atriumhq/atrium/pkg/httpx"
	"github.com/atriumhq/atrium/pkg/identitysdk"
)

// writeServiceError maps service sentinels onto stable wire codes. Anything
// unrecognized is logged and reported as a plain server error.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrDomainNotAllowed):
		httpx.WriteError(w, http.StatusForbidden,
			identitysdk.ReasonDomainNotAllowed, "This email domain is not permitted")
	case errors.Is(err, service.ErrUserInactive):
		httpx.WriteError(w, http.StatusForbidden,
			identitysdk.ReasonUserInactive, "This account has been deactivated")
	case errors.Is(err, service.ErrInvitationExpired):
		httpx.WriteError(w, http.StatusGone,
			identitysdk.ReasonInvitationExpired, "The invitation has expired")
	case errors.Is(err, service.ErrInvitationNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			identitysdk.ReasonInvitationNotFound, "No such invitation")
	case errors.Is(err, service.ErrDuplicateInvitation):
		httpx.WriteError(w, http.StatusConflict,
			identitysdk.ReasonDuplicateInvitation, "A live invitation already exists for this email")
	case errors.Is(err, service.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusConflict,
			identitysdk.ReasonDuplicateEmail, "An account already exists for this email")
	case errors.Is(err, service.ErrSessionInvalid):
		httpx.WriteError(w, http.StatusUnauthorized,
			identitysdk.ReasonSessionInvalid, "Authentication required")
	case errors.Is(err, service.ErrRoleInsufficient):
		httpx.WriteError(w, http.StatusForbidden,
			identitysdk.ReasonRoleInsufficient, "Insufficient role for this operation")
	case errors.Is(err, service.ErrAccountNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			identitysdk.ReasonAccountNotFound, "No such account")
	case errors.Is(err, service.ErrLastAdmin):
		httpx.WriteError(w, http.StatusConflict,
			identitysdk.ReasonLastAdmin, "The last remaining admin cannot be demoted")
	case errors.Is(err, service.ErrInvalidIdentity), errors.Is(err, domain.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest,
			identitysdk.ReasonInvalidRequest, "Invalid request parameters")
	default:
		log.Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError,
			identitysdk.ReasonServerError, "Internal error")
	}
}

// callbackReason maps a login failure onto the non-sensitive reason code
// carried on the failure redirect.
func callbackReason(err error) string {
	switch {
	case errors.Is(err, service.ErrDomainNotAllowed):
		return identitysdk.ReasonDomainNotAllowed
	case errors.Is(err, service.ErrUserInactive):
		return identitysdk.ReasonUserInactive
	case errors.Is(err, service.ErrInvalidIdentity):
		return identitysdk.ReasonInvalidRequest
	default:
		return identitysdk.ReasonServerError
	}
}
