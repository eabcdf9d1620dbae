package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AllowedEmailDomains []string // Optional: allow-list of email domains; empty allows any
	AdminEmail          string   // Optional: this address becomes admin at first login

	InviteTTL           time.Duration // Invitation lifetime (default: 168h)
	SessionIdleTimeout  time.Duration // Session idle window (default: 30m)
	InvitationRetention time.Duration // How long expired invitations stay listed (default: 720h)

	SessionCookieName string // Session cookie name (default: atrium_session)
	CookieSecure      bool   // Secure flag on cookies; disable only for plain-HTTP dev (default: true)
	SuccessURL        string // Post-login landing page (default: /)
	FailureURL        string // Post-failure landing page, receives ?reason= (default: /login)

	// OAuth2 provider. When ClientID is empty no provider is registered
	// and the login endpoints return 404.
	OAuthProviderName string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthUserInfoURL  string
	OAuthRedirectURL  string
	OAuthScopes       []string

	DatabaseFile         string        // Path to SQLite database file (default: ./identity.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	return Config{
		AllowedEmailDomains: getEnvListOrDefault("ALLOWED_EMAIL_DOMAINS", nil),
		AdminEmail:          os.Getenv("ADMIN_EMAIL"),

		InviteTTL:           getEnvDurationOrDefault("INVITE_TTL", 7*24*time.Hour),
		SessionIdleTimeout:  getEnvDurationOrDefault("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		InvitationRetention: getEnvDurationOrDefault("INVITATION_RETENTION", 30*24*time.Hour),

		SessionCookieName: getEnvOrDefault("SESSION_COOKIE_NAME", "atrium_session"),
		CookieSecure:      getEnvBoolOrDefault("COOKIE_SECURE", true),
		SuccessURL:        getEnvOrDefault("LOGIN_SUCCESS_URL", "/"),
		FailureURL:        getEnvOrDefault("LOGIN_FAILURE_URL", "/login"),

		OAuthProviderName: getEnvOrDefault("OAUTH_PROVIDER_NAME", "sso"),
		OAuthClientID:     os.Getenv("OAUTH_CLIENT_ID"),
		OAuthClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
		OAuthAuthURL:      os.Getenv("OAUTH_AUTH_URL"),
		OAuthTokenURL:     os.Getenv("OAUTH_TOKEN_URL"),
		OAuthUserInfoURL:  os.Getenv("OAUTH_USERINFO_URL"),
		OAuthRedirectURL:  os.Getenv("OAUTH_REDIRECT_URL"),
		OAuthScopes:       getEnvListOrDefault("OAUTH_SCOPES", []string{"openid", "email", "profile"}),

		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "identity.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
