package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/atriumhq/atrium/internal/identity/service"
	"github.com/atriumhq/atrium/pkg/httpx"
	"github.com/atriumhq/atrium/pkg/identitysdk"
	"github.com/atriumhq/atrium/pkg/slogx"
)

// UsersHandler serves the admin-only account and invitation management
// endpoints. All of its routes sit behind the session middleware plus a
// RequireRole(admin) gate.
type UsersHandler struct {
	Accounts    *service.AccountService
	Invitations *service.InvitationService
}

// HandleCreate provisions an account ahead of its first login.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req identitysdk.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			identitysdk.ReasonInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest,
			identitysdk.ReasonInvalidRequest, "email is required")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			identitysdk.ReasonInvalidRequest, "role must be employee, manager, or admin")
		return
	}

	issuer, ok := accountFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized,
			identitysdk.ReasonSessionInvalid, "Authentication required")
		return
	}

	account, err := h.Accounts.CreateProvisioned(ctx, req.Email, req.DisplayName, role, issuer.ID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, accountResponse(account))
}

// HandleList returns a page of accounts for the admin user table.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, pageSize := pageParams(r)

	accounts, err := h.Accounts.List(ctx, page, pageSize)
	if err != nil {
		writeServiceError(w, slogx.FromContext(ctx), err)
		return
	}

	resp := identitysdk.ListAccountsResponse{
		Accounts: make([]identitysdk.AccountResponse, 0, len(accounts)),
		Page:     page,
		PageSize: pageSize,
	}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, accountResponse(a))
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleInvite mints an invitation for the account's email, or rotates the
// existing one when a live invitation is already on file. The raw token in
// the response is the only copy that will ever exist.
func (h *UsersHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req identitysdk.InviteRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest,
				identitysdk.ReasonInvalidRequest, "Invalid JSON body")
			return
		}
	}

	issuer, ok := accountFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized,
			identitysdk.ReasonSessionInvalid, "Authentication required")
		return
	}

	target, err := h.Accounts.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	role := target.Role
	if req.Role != "" {
		if role, err = domain.ParseRole(req.Role); err != nil {
			httpx.WriteError(w, http.StatusBadRequest,
				identitysdk.ReasonInvalidRequest, "role must be employee, manager, or admin")
			return
		}
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second

	token, inv, err := h.Invitations.Create(ctx, target.Email, role, issuer.ID, ttl)
	if errors.Is(err, service.ErrDuplicateInvitation) {
		// A live invitation exists; rotate it rather than failing the admin.
		token, inv, err = h.Invitations.Resend(ctx, target.Email, issuer.ID, ttl)
	}
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, identitysdk.InviteResponse{
		InvitationToken: token,
		Email:           inv.Email,
		Role:            inv.Role.String(),
		ExpiresAt:       inv.ExpiresAt.Format(time.RFC3339),
	})
}

// HandlePendingInvitations lists unconsumed invitations, expired ones
// flagged but included.
func (h *UsersHandler) HandlePendingInvitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, pageSize := pageParams(r)

	invitations, err := h.Invitations.ListPending(ctx, page, pageSize)
	if err != nil {
		writeServiceError(w, slogx.FromContext(ctx), err)
		return
	}

	now := time.Now().UTC()
	resp := identitysdk.ListInvitationsResponse{
		Invitations: make([]identitysdk.InvitationInfo, 0, len(invitations)),
		Page:        page,
		PageSize:    pageSize,
	}
	for _, inv := range invitations {
		resp.Invitations = append(resp.Invitations, invitationInfo(inv, now))
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleSetRole changes an account's role, subject to the authorization
// resolver (admin only, last-admin guard).
func (h *UsersHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req identitysdk.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			identitysdk.ReasonInvalidRequest, "Invalid JSON body")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			identitysdk.ReasonInvalidRequest, "role must be employee, manager, or admin")
		return
	}

	acting, ok := accountFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized,
			identitysdk.ReasonSessionInvalid, "Authentication required")
		return
	}

	account, err := h.Accounts.SetRole(ctx, r.PathValue("id"), role, acting.ID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountResponse(account))
}

func pageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}
