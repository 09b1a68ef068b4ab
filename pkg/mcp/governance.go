// ABOUTME: Per-tool visibility governance as an ordered chain of independent checks.
// ABOUTME: Role membership, named-policy evaluation, and a caller-supplied predicate.

package mcp

import (
	"context"
	"net/http"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/identity"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/registry"
)

// check is one governance decision. Checks are independent and composable;
// a tool is visible only when every check passes.
type check func(ctx context.Context, r *http.Request, ident *identity.Identity, tool *registry.Tool) bool

// governanceChain builds the ordered checks: role membership first, then
// policy evaluation, then the caller-supplied predicate.
func governanceChain(policies identity.PolicyEvaluator, visibility VisibilityFunc) []check {
	chain := []check{roleCheck, policyCheck(policies)}
	if visibility != nil {
		chain = append(chain, predicateCheck(visibility))
	}
	return chain
}

// roleCheck requires the identity to hold at least one of the tool's roles.
// Tools without role requirements pass for everyone, anonymous included.
func roleCheck(_ context.Context, _ *http.Request, ident *identity.Identity, tool *registry.Tool) bool {
	return ident.HasAnyRole(tool.Roles)
}

// policyCheck evaluates the tool's named policy. Without an evaluator a
// policy-gated tool fails closed.
func policyCheck(policies identity.PolicyEvaluator) check {
	return func(ctx context.Context, _ *http.Request, ident *identity.Identity, tool *registry.Tool) bool {
		if tool.Policy == "" {
			return true
		}
		if policies == nil {
			return false
		}
		return policies(ctx, ident, tool.Policy)
	}
}

// predicateCheck adapts the caller-supplied visibility function.
func predicateCheck(visibility VisibilityFunc) check {
	return func(_ context.Context, r *http.Request, ident *identity.Identity, tool *registry.Tool) bool {
		return visibility(r, ident, tool)
	}
}
