// ABOUTME: Host application route table and pipeline composition.
// ABOUTME: Registers declarative operations and serves them over a standard ServeMux.

package host

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/identity"
)

// ErrDuplicateRoute indicates an operation with the same method and path was
// already registered.
var ErrDuplicateRoute = errors.New("duplicate route")

// Filter wraps a handler with cross-cutting behavior. Filters compose in
// declaration order, outermost first.
type Filter func(http.Handler) http.Handler

// Controller groups related operations behind a structured target. Mounting
// a controller registers every operation it exposes.
type Controller interface {
	Operations() []*Operation
}

// Config holds construction parameters for an App.
type Config struct {
	Logger            *slog.Logger
	Identity          identity.Provider        // optional; nil means all requests are anonymous
	Policies          identity.PolicyEvaluator // optional; nil fails any policy requirement
	Filters           []Filter                 // application-level filters
	CorrelationHeader string                   // defaults to X-Correlation-ID
	MaxBodySize       int64                    // defaults to 1MB
}

// App is the host application: a route table of operations, each served
// through an identical composed pipeline for both real and synthetic
// requests.
type App struct {
	logger            *slog.Logger
	provider          identity.Provider
	policies          identity.PolicyEvaluator
	filters           []Filter
	correlationHeader string
	maxBodySize       int64

	mux    *http.ServeMux
	ops    []*Operation
	routes map[string]*Operation // "METHOD path" -> operation
}

// NewApp creates an empty host application.
func NewApp(cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	header := cfg.CorrelationHeader
	if header == "" {
		header = "X-Correlation-ID"
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &App{
		logger:            logger,
		provider:          cfg.Identity,
		policies:          cfg.Policies,
		filters:           cfg.Filters,
		correlationHeader: header,
		maxBodySize:       maxBody,
		mux:               http.NewServeMux(),
		routes:            make(map[string]*Operation),
	}
}

// placeholderRe matches {name} path placeholders.
var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Register validates an operation, composes its pipeline, and mounts it on
// the application's router. Registration order is preserved and later drives
// tool discovery order.
func (a *App) Register(op *Operation) error {
	if op.Method == "" {
		return errors.New("operation method is required")
	}
	if !strings.HasPrefix(op.Path, "/") {
		return fmt.Errorf("operation path %q must start with /", op.Path)
	}
	if op.Handler == nil {
		return errors.New("operation handler is required")
	}

	key := op.Method + " " + op.Path
	if _, exists := a.routes[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, key)
	}

	// Every {name} placeholder must have a matching route parameter so that
	// binding and synthetic construction agree on the path shape.
	declared := make(map[string]bool)
	for _, p := range op.RouteParams() {
		declared[p.Name] = true
	}
	for _, m := range placeholderRe.FindAllStringSubmatch(op.Path, -1) {
		if !declared[m[1]] {
			return fmt.Errorf("path placeholder {%s} has no route parameter descriptor", m[1])
		}
	}

	op.pipeline = a.compose(op)
	a.mux.Handle(key, op.pipeline)
	a.routes[key] = op
	a.ops = append(a.ops, op)

	a.logger.Debug("operation registered",
		"method", op.Method,
		"path", op.Path,
		"tool", op.Tool != nil,
	)
	return nil
}

// Mount registers every operation exposed by a controller.
func (a *App) Mount(c Controller) error {
	for _, op := range c.Operations() {
		if err := a.Register(op); err != nil {
			return err
		}
	}
	return nil
}

// Operations returns all registered operations in registration order.
func (a *App) Operations() []*Operation {
	out := make([]*Operation, len(a.ops))
	copy(out, a.ops)
	return out
}

// CorrelationHeader returns the header name used for correlation ids.
func (a *App) CorrelationHeader() string {
	return a.correlationHeader
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// ServeHTTP serves real inbound traffic through the route table.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// Invoke drives a request through the operation's composed pipeline,
// bypassing routing. The synthetic request must already carry its path
// values.
func (a *App) Invoke(w http.ResponseWriter, r *http.Request, op *Operation) {
	op.pipeline.ServeHTTP(w, r)
}

// compose builds the full filter chain for one operation. Applied in reverse
// order, so the first listed filter executes first.
func (a *App) compose(op *Operation) http.Handler {
	h := op.Handler
	h = a.bindFilter(op)(h)
	h = a.authorizeFilter(op)(h)
	for i := len(op.Filters) - 1; i >= 0; i-- {
		h = op.Filters[i](h)
	}
	h = a.identityFilter(h)
	for i := len(a.filters) - 1; i >= 0; i-- {
		h = a.filters[i](h)
	}
	h = a.loggingFilter(h)
	h = a.correlationFilter(h)
	h = a.maxBodyFilter(h)
	h = a.recoveryFilter(h)
	return h
}
