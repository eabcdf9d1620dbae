// Package provider implements the external authentication collaborators
// the login flow redirects to. The identity core never sees anything from
// this package except the verified identity a provider hands back.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/atriumhq/atrium/internal/identity/domain"
)

// Config describes one OAuth2 authorization-code provider.
type Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

// OAuth2Provider runs the standard authorization-code handshake against a
// provider and reads the verified email from its userinfo endpoint.
type OAuth2Provider struct {
	name        string
	userInfoURL string
	config      *oauth2.Config
}

// New builds a provider from config.
func New(cfg Config) *OAuth2Provider {
	return &OAuth2Provider{
		name:        cfg.Name,
		userInfoURL: cfg.UserInfoURL,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}
}

// Name returns the provider slug used in login paths.
func (p *OAuth2Provider) Name() string { return p.name }

// AuthCodeURL returns the provider's authorization URL carrying state.
func (p *OAuth2Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// userInfo is the subset of the userinfo response this service cares
// about. Field fallbacks cover the common provider dialects.
type userInfo struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

// Exchange trades the callback code for the provider-verified identity.
func (p *OAuth2Provider) Exchange(ctx context.Context, code string) (domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("provider %s: code exchange failed: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return domain.Identity{}, err
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("provider %s: userinfo request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Identity{}, fmt.Errorf("provider %s: userinfo returned %d", p.name, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.Identity{}, fmt.Errorf("provider %s: invalid userinfo response: %w", p.name, err)
	}

	displayName := info.Name
	if displayName == "" {
		displayName = info.PreferredUsername
	}

	return domain.Identity{
		Email:       info.Email,
		DisplayName: displayName,
	}, nil
}
