package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/atriumhq/atrium/internal/identity/domain"
	"github.com/atriumhq/atrium/internal/identity/service"
	"github.com/atriumhq/atrium/internal/identity/store"
	"github.com/atriumhq/atrium/pkg/httpx"
	"github.com/atriumhq/atrium/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	LoginService      *service.LoginService
	SessionService    *service.SessionService
	AccountService    *service.AccountService
	InvitationService *service.InvitationService
	AuthzService      *service.AuthzService

	Providers *ProviderRegistry
	Cookies   CookieConfig

	// Post-callback landing pages.
	SuccessURL string
	FailureURL string
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		SuccessURL:   "/",
		FailureURL:   "/login",
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		LoginService: r.LoginService,
		Sessions:     r.SessionService,
		Providers:    r.Providers,
		Cookies:      r.Cookies,
		SuccessURL:   r.SuccessURL,
		FailureURL:   r.FailureURL,
	}

	// GET /auth/login/{provider} - just a redirect, lenient limit
	r.Mux.Handle("GET /auth/login/{provider}",
		httpx.Chain(http.HandlerFunc(h.HandleStart),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// GET /auth/callback/{provider} - strict limit; a callback burst is
	// either a broken client or someone probing the exchange
	r.Mux.Handle("GET /auth/callback/{provider}",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /auth/me - authenticated, lenient limit by account
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			SessionMiddleware(r.SessionService, r.Cookies),
			httpx.RateLimitByAccount(httpx.LenientLimit),
		),
	)

	// POST /auth/logout - no session required; logging out of a dead
	// session still succeeds
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		Accounts:    r.AccountService,
		Invitations: r.InvitationService,
	}

	admin := func(next http.Handler, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(next,
			SessionMiddleware(r.SessionService, r.Cookies),
			RequireRole(r.AuthzService, domain.RoleAdmin),
			httpx.RateLimitByAccount(limit),
		)
	}

	r.Mux.Handle("POST /users",
		admin(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("GET /users",
		admin(http.HandlerFunc(h.HandleList), httpx.LenientLimit))
	r.Mux.Handle("POST /users/{id}/invite",
		admin(http.HandlerFunc(h.HandleInvite), httpx.ModerateLimit))
	r.Mux.Handle("GET /users/pending-invitations",
		admin(http.HandlerFunc(h.HandlePendingInvitations), httpx.LenientLimit))
	r.Mux.Handle("PUT /users/{id}/role",
		admin(http.HandlerFunc(h.HandleSetRole), httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient limits, monitoring polls frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
