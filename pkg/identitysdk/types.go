package identitysdk

// ErrorResponse is the standard error envelope. Error carries a stable
// machine-readable reason code; the description is for humans and may
// change between releases.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Stable reason codes returned in ErrorResponse.Error. Codes are
// deliberately coarse so responses never reveal which internal check
// failed beyond what the caller needs.
const (
	ReasonInvalidRequest      = "invalid_request"
	ReasonUnauthorized        = "unauthorized"
	ReasonServerError         = "server_error"
	ReasonDomainNotAllowed    = "domain_not_allowed"
	ReasonUserInactive        = "user_inactive"
	ReasonInvitationExpired   = "invitation_expired"
	ReasonInvitationNotFound  = "invitation_not_found"
	ReasonDuplicateInvitation = "duplicate_invitation"
	ReasonDuplicateEmail      = "duplicate_email"
	ReasonSessionInvalid      = "session_invalid"
	ReasonRoleInsufficient    = "role_insufficient"
	ReasonAccountNotFound     = "account_not_found"
	ReasonLastAdmin           = "last_admin"
)

// AccountResponse is the projection of an account returned by /auth/me and
// the admin user listing.
type AccountResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	IsActive    bool   `json:"is_active"`

	// Provisioning lineage. InvitedBy is a back-reference to the issuing
	// admin's account id and may be empty for walk-in accounts.
	IsProvisioned bool   `json:"is_provisioned"`
	InvitedBy     string `json:"invited_by,omitempty"`
	InvitedAt     string `json:"invited_at,omitempty"`   // RFC3339, empty until invited
	ActivatedAt   string `json:"activated_at,omitempty"` // RFC3339, empty until first login

	CreatedAt string `json:"created_at"` // RFC3339
}

// ListAccountsResponse is a page of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// CreateUserRequest provisions an account ahead of its first login.
type CreateUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"` // employee, manager, or admin
}

// InviteRequest issues or re-sends an invitation for a provisioned account.
type InviteRequest struct {
	// Role overrides the account's current role for the invitation.
	// Empty means keep the account's role.
	Role string `json:"role,omitempty"`

	// TTLSeconds overrides the configured invitation lifetime. Zero means
	// use the default.
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`
}

// InviteResponse carries the minted invitation token. The token is shown
// exactly once; the server keeps only a fingerprint.
type InviteResponse struct {
	InvitationToken string `json:"invitation_token"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	ExpiresAt       string `json:"expires_at"` // RFC3339
}

// InvitationInfo is one row of the pending-invitations listing.
type InvitationInfo struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	InvitedBy string `json:"invited_by"`
	InvitedAt string `json:"invited_at"` // RFC3339
	ExpiresAt string `json:"expires_at"` // RFC3339
	Expired   bool   `json:"expired"`
}

// ListInvitationsResponse is a page of pending invitations.
type ListInvitationsResponse struct {
	Invitations []InvitationInfo `json:"invitations"`
	Page        int              `json:"page"`
	PageSize    int              `json:"page_size"`
}

// UpdateRoleRequest changes an account's role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// HealthResponse is returned by /livez and /readyz; readyz adds Checks.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the status of critical dependencies.
type HealthChecks struct {
	Database string `json:"database"`
}
