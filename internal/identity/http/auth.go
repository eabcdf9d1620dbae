package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/atriumhq/atrium/internal/identity/service"
	"github.com/atriumhq/atrium/pkg/cryptox"
	"github.com/atriumhq/atrium/pkg/httpx"
	"github.com/atriumhq/atrium/pkg/identitysdk"
	"github.com/atriumhq/atrium/pkg/slogx"
)

// stateTTL bounds one provider round-trip.
const stateTTL = 10 * time.Minute

// AuthHandler runs the browser-facing login flow: redirect out to the
// provider, and turn the provider's callback into a session cookie.
type AuthHandler struct {
	LoginService *service.LoginService
	Sessions     *service.SessionService
	Providers    *ProviderRegistry
	Cookies      CookieConfig

	// SuccessURL and FailureURL are where the browser lands after the
	// callback. Failures carry a non-sensitive reason query parameter.
	SuccessURL string
	FailureURL string
}

// HandleStart begins a login attempt by redirecting to the provider.
func (h *AuthHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	provider, err := h.Providers.Get(r.PathValue("provider"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound,
			identitysdk.ReasonInvalidRequest, "Unknown provider")
		return
	}

	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to generate state token", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError,
			identitysdk.ReasonServerError, "Internal error")
		return
	}

	httpx.SetCookie(w, stateCookie, state, stateTTL, h.Cookies.Secure)
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback completes a login attempt. Every failure redirects to the
// failure page with a coarse reason code; the browser never sees which
// internal check failed beyond that.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	provider, err := h.Providers.Get(r.PathValue("provider"))
	if err != nil {
		h.redirectFailure(w, r, identitysdk.ReasonInvalidRequest)
		return
	}

	if errCode := r.URL.Query().Get("error"); errCode != "" {
		log.Warn("provider returned an error", "provider", provider.Name(), "code", errCode)
		h.redirectFailure(w, r, identitysdk.ReasonUnauthorized)
		return
	}

	// The state parameter must round-trip through the cookie we set on the
	// way out.
	state := r.URL.Query().Get("state")
	expected := httpx.CookieValue(r, stateCookie)
	httpx.ClearCookie(w, stateCookie, h.Cookies.Secure)
	if state == "" || expected == "" || !cryptox.ConstantTimeEquals(state, expected) {
		log.Warn("state mismatch on callback", "provider", provider.Name())
		h.redirectFailure(w, r, identitysdk.ReasonInvalidRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectFailure(w, r, identitysdk.ReasonInvalidRequest)
		return
	}

	ident, err := provider.Exchange(ctx, code)
	if err != nil {
		log.Warn("code exchange failed", "provider", provider.Name(), "err", err)
		h.redirectFailure(w, r, identitysdk.ReasonUnauthorized)
		return
	}

	result, err := h.LoginService.HandleCallback(ctx, ident)
	if err != nil {
		reason := callbackReason(err)
		if reason == identitysdk.ReasonServerError {
			log.Error("login callback failed", "err", err)
		}
		h.redirectFailure(w, r, reason)
		return
	}

	httpx.SetCookie(w, h.Cookies.SessionName(), result.SessionToken, 0, h.Cookies.Secure)

	target := h.SuccessURL
	if result.ExpiredInvitationIgnored {
		target = appendQuery(target, "notice", identitysdk.ReasonInvitationExpired)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleMe returns the authenticated account. Sits behind the session
// middleware.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized,
			identitysdk.ReasonSessionInvalid, "Authentication required")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountResponse(account))
}

// HandleLogout revokes the session server-side and clears the cookie.
// Always succeeds, even for an already-dead session.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token := httpx.CookieValue(r, h.Cookies.SessionName())

	if err := h.Sessions.Revoke(r.Context(), token); err != nil {
		slogx.FromContext(r.Context()).Error("failed to revoke session", "err", err)
	}

	httpx.ClearCookie(w, h.Cookies.SessionName(), h.Cookies.Secure)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, appendQuery(h.FailureURL, "reason", reason), http.StatusFound)
}

func appendQuery(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
