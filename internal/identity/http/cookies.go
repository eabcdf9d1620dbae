package http

// Cookie names. The state cookie only lives for the duration of one
// provider round-trip.
const (
	defaultSessionCookie = "atrium_session"
	stateCookie          = "atrium_oauth_state"
)

// CookieConfig controls how the session cookie is written. Secure should
// only be disabled for plain-HTTP local development.
type CookieConfig struct {
	Name   string
	Secure bool
}

// SessionName returns the configured session cookie name.
func (c CookieConfig) SessionName() string {
	if c.Name == "" {
		return defaultSessionCookie
	}
	return c.Name
}
