// ABOUTME: Static bearer-token identity provider for wiring and tests.
// ABOUTME: Maps opaque tokens to identities; tokens are issued at registration time.

package identity

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TokenProvider is a Provider backed by an in-memory token table.
// Requests without a recognized bearer token resolve as anonymous.
type TokenProvider struct {
	mu     sync.RWMutex
	tokens map[string]*Identity
}

// NewTokenProvider creates an empty token provider.
func NewTokenProvider() *TokenProvider {
	return &TokenProvider{tokens: make(map[string]*Identity)}
}

// IssueToken generates a new token bound to the given subject and roles.
// Returns the token string the caller should present as a bearer credential.
func (p *TokenProvider) IssueToken(subject string, roles []string) string {
	token := uuid.New().String()

	// Copy roles to avoid aliasing
	rs := make([]string, len(roles))
	copy(rs, roles)

	p.mu.Lock()
	p.tokens[token] = &Identity{Subject: subject, Roles: rs}
	p.mu.Unlock()

	return token
}

// Revoke removes a token from the table.
func (p *TokenProvider) Revoke(token string) {
	p.mu.Lock()
	delete(p.tokens, token)
	p.mu.Unlock()
}

// IdentityFromRequest resolves the identity for the request's Authorization
// header. Missing or unrecognized credentials yield an anonymous identity.
func (p *TokenProvider) IdentityFromRequest(r *http.Request) (*Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, nil
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return nil, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	ident, ok := p.tokens[token]
	if !ok {
		return nil, nil
	}
	return ident, nil
}
