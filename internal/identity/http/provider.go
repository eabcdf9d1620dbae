package http

import (
	"context"
	"errors"

	"github.com/atriumhq/atrium/internal/identity/domain"
)

// Provider abstracts the external authentication handshake. The identity
// core only ever sees the verified identity a provider hands back; redirect
// URLs, token exchange, and signature verification are the provider's
// problem.
type Provider interface {
	// Name is the stable slug used in /auth/login/{provider} paths.
	Name() string

	// AuthCodeURL returns the provider's authorization URL for a login
	// attempt carrying the given anti-forgery state.
	AuthCodeURL(state string) string

	// Exchange trades the callback code for a verified identity.
	Exchange(ctx context.Context, code string) (domain.Identity, error)
}

// ErrUnknownProvider is returned when a request names a provider that was
// never registered.
var ErrUnknownProvider = errors.New("unknown authentication provider")

// ProviderRegistry maps provider slugs to implementations.
type ProviderRegistry struct {
	providers map[string]Provider
}

// NewProviderRegistry builds a registry from the given providers.
func NewProviderRegistry(providers ...Provider) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get looks a provider up by slug.
func (r *ProviderRegistry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names lists the registered provider slugs.
func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
