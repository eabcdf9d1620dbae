package service

import (
	"github.com/atriumhq/atrium/internal/identity/domain"
)

// DomainPolicy is the pure predicate deciding whether an email address may
// authenticate at all. It never touches the network or the store.
type DomainPolicy struct {
	domains map[string]struct{}
}

// NewDomainPolicy builds a policy from an allow-list of email domains.
// An empty list means any domain is allowed; deployments that intended a
// restriction must catch that at startup (the app logs a loud warning),
// because at runtime an open policy is indistinguishable from a deliberate
// one.
func NewDomainPolicy(allowed []string) *DomainPolicy {
	p := &DomainPolicy{domains: make(map[string]struct{}, len(allowed))}
	for _, d := range allowed {
		if d = domain.NormalizeEmail(d); d != "" {
			p.domains[d] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether the email's domain is on the allow-list.
func (p *DomainPolicy) Allowed(email string) bool {
	if len(p.domains) == 0 {
		return true
	}

	d := domain.EmailDomain(email)
	if d == "" {
		return false
	}

	_, ok := p.domains[d]
	return ok
}

// Open reports whether the policy accepts any domain.
func (p *DomainPolicy) Open() bool { return len(p.domains) == 0 }
