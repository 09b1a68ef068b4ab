// ABOUTME: Caller identity with role membership and named-policy evaluation.
// ABOUTME: Provides WithIdentity/FromContext for propagating identity via context.

package identity

import (
	"context"
	"net/http"
)

// Identity holds the authenticated caller information attached to a request.
// A nil *Identity is treated as anonymous: it holds no roles and fails every
// role or policy requirement.
type Identity struct {
	Subject string   // stable identifier of the principal
	Roles   []string // roles assigned to this principal
}

// HasRole returns true if the identity holds the given role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole returns true if the identity holds at least one of the given
// roles. An empty role list is satisfied by any caller, anonymous included.
func (i *Identity) HasAnyRole(roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if i.HasRole(r) {
			return true
		}
	}
	return false
}

// PolicyEvaluator decides whether an identity satisfies a named policy.
// Implementations are supplied by the embedding application.
type PolicyEvaluator func(ctx context.Context, ident *Identity, policy string) bool

// Provider resolves the caller identity from an inbound request.
// Returning (nil, nil) means the request is anonymous.
type Provider interface {
	IdentityFromRequest(r *http.Request) (*Identity, error)
}

// identityKey is the key type for storing an Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the identity attached.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// FromContext retrieves the Identity from the context, returning nil if not
// present.
func FromContext(ctx context.Context) *Identity {
	val := ctx.Value(identityKey{})
	if val == nil {
		return nil
	}
	ident, ok := val.(*Identity)
	if !ok {
		return nil
	}
	return ident
}
