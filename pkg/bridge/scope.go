// ABOUTME: Per-dispatch execution scope with guaranteed resource teardown.
// ABOUTME: Each tool call owns an independent scope, never shared across calls.

package bridge

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Scope is the isolated execution scope of one dispatch. Handlers may park
// per-call values and cleanup callbacks on it; Close runs every callback
// exactly once, in reverse registration order.
type Scope struct {
	id string

	mu      sync.Mutex
	values  map[string]any
	closers []func()
	closed  bool
}

// NewScope creates a fresh scope with a unique id.
func NewScope() *Scope {
	return &Scope{
		id:     uuid.New().String(),
		values: make(map[string]any),
	}
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() string {
	return s.id
}

// Set stores a per-call value. No-op after Close.
func (s *Scope) Set(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.values[key] = val
}

// Get retrieves a per-call value.
func (s *Scope) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.values[key]
	return val, ok
}

// OnClose registers a cleanup callback. Callbacks registered after Close run
// immediately.
func (s *Scope) OnClose(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.closers = append(s.closers, fn)
	s.mu.Unlock()
}

// Close tears the scope down. Safe to call multiple times.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.values = nil
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// scopeKey is the context key for the active scope.
type scopeKey struct{}

// WithScope attaches a scope to the context.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFromContext returns the active dispatch scope, or nil for requests
// that did not arrive through the bridge.
func ScopeFromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}
