package http

import (
	"context"
	"net/http"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/atriumhq/atrium/internal/identity/service"
	"github.com/atriumhq/atrium/pkg/httpx"
	"github.com/atriumhq/atrium/pkg/identitysdk"
)

type ctxKey string

const ctxKeyAccount ctxKey = "account"

// accountFromContext returns the authenticated account placed there by the
// session middleware.
func accountFromContext(ctx context.Context) (domain.Account, bool) {
	a, ok := ctx.Value(ctxKeyAccount).(domain.Account)
	return a, ok
}

// SessionMiddleware resolves the session cookie on every request. The
// account's active flag is re-checked at validation time, so a deactivated
// account is locked out mid-session, not just at next login.
func SessionMiddleware(sessions *service.SessionService, cookies CookieConfig) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := httpx.CookieValue(r, cookies.SessionName())

			account, _, err := sessions.Validate(r.Context(), token)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized,
					identitysdk.ReasonSessionInvalid, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyAccount, account)
			ctx = context.WithValue(ctx, httpx.CtxKeyAccountID, account.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a handler behind a minimum role. Must sit inside
// SessionMiddleware.
func RequireRole(authz *service.AuthzService, min domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := accountFromContext(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized,
					identitysdk.ReasonSessionInvalid, "Authentication required")
				return
			}

			if err := authz.RequireRole(account, min); err != nil {
				httpx.WriteError(w, http.StatusForbidden,
					identitysdk.ReasonRoleInsufficient, "Insufficient role for this operation")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
