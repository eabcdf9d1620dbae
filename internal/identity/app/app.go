package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/atriumhq/atrium/internal/identity/http"
	"github.com/atriumhq/atrium/internal/identity/provider"
	"github.com/atriumhq/atrium/internal/identity/service"
	"github.com/atriumhq/atrium/internal/identity/store"
	"github.com/atriumhq/atrium/internal/identity/store/drivers/sqlite"
	"github.com/atriumhq/atrium/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the identity service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	loginService        *service.LoginService
	sessionService      *service.SessionService
	accountService      *service.AccountService
	invitationService   *service.InvitationService
	authzService        *service.AuthzService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	if len(cfg.AllowedEmailDomains) == 0 {
		// An open policy is indistinguishable from a deliberate one at
		// runtime, so a misconfigured deployment has to be caught here.
		app.logger.Warn("ALLOWED_EMAIL_DOMAINS is empty: any email domain may authenticate")
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			// The server is already dead; still release everything else.
			app.housekeepingService.Stop()
			if cerr := app.db.Close(); cerr != nil {
				app.logger.Error("error closing database", "error", cerr)
			}
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Store:       app.db,
		IdleTimeout: app.cfg.SessionIdleTimeout,
	}
	app.authzService = &service.AuthzService{Store: app.db}
	app.accountService = &service.AccountService{
		Store: app.db,
		Authz: app.authzService,
	}
	app.invitationService = &service.InvitationService{
		Store:      app.db,
		DefaultTTL: app.cfg.InviteTTL,
	}
	app.loginService = &service.LoginService{
		Store:      app.db,
		Policy:     service.NewDomainPolicy(app.cfg.AllowedEmailDomains),
		Sessions:   app.sessionService,
		AdminEmail: app.cfg.AdminEmail,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.SessionIdleTimeout,
		app.cfg.InvitationRetention,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.LoginService = app.loginService
	router.SessionService = app.sessionService
	router.AccountService = app.accountService
	router.InvitationService = app.invitationService
	router.AuthzService = app.authzService
	router.Providers = app.initProviders()
	router.Cookies = httpapi.CookieConfig{
		Name:   app.cfg.SessionCookieName,
		Secure: app.cfg.CookieSecure,
	}
	router.SuccessURL = app.cfg.SuccessURL
	router.FailureURL = app.cfg.FailureURL
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func (app *Application) initProviders() *httpapi.ProviderRegistry {
	if app.cfg.OAuthClientID == "" {
		app.logger.Warn("no OAuth provider configured: login endpoints will reject all attempts")
		return httpapi.NewProviderRegistry()
	}

	p := provider.New(provider.Config{
		Name:         app.cfg.OAuthProviderName,
		ClientID:     app.cfg.OAuthClientID,
		ClientSecret: app.cfg.OAuthClientSecret,
		AuthURL:      app.cfg.OAuthAuthURL,
		TokenURL:     app.cfg.OAuthTokenURL,
		UserInfoURL:  app.cfg.OAuthUserInfoURL,
		RedirectURL:  app.cfg.OAuthRedirectURL,
		Scopes:       app.cfg.OAuthScopes,
	})

	app.logger.Info("authentication provider registered", "provider", p.Name())
	return httpapi.NewProviderRegistry(p)
}
