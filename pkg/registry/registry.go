// ABOUTME: Tool registry built once from the host application's operation metadata.
// ABOUTME: Handles discovery ordering, name collisions, and case-insensitive lookup.

package registry

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/host"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/schema"
)

// Tool is the immutable descriptor of one invokable tool. Built once at
// discovery time and never mutated afterwards.
type Tool struct {
	Name        string
	Description string
	Tags        []string
	Roles       []string // caller must hold at least one to see or call the tool
	Policy      string   // optional named policy
	Method      string
	Path        string
	RouteParams []host.Param
	QueryParams []host.Param
	Body        *host.BodySpec // nil means no request payload is constructed
	SchemaJSON  string

	// Operation is the opaque reference back to the host operation, used by
	// the dispatcher to drive the real pipeline.
	Operation *host.Operation
}

// Config holds construction parameters for a Registry.
type Config struct {
	App    *host.App
	Logger *slog.Logger

	// NameFilter, when set, excludes candidate tools whose name it rejects.
	NameFilter func(name string) bool
}

// Registry maps tool names to descriptors. The catalog is built lazily
// exactly once on first access and is read-only afterwards; rebuilding
// requires constructing a new Registry.
type Registry struct {
	app    *host.App
	logger *slog.Logger
	filter func(string) bool

	once   sync.Once
	tools  []*Tool
	byName map[string]*Tool // lowercased name -> tool
}

// New creates a Registry over the given host application. Discovery runs on
// first access to Tools or Tool.
func New(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		app:    cfg.App,
		logger: logger,
		filter: cfg.NameFilter,
	}
}

// Tools returns all registered tools in discovery order.
func (r *Registry) Tools() []*Tool {
	r.once.Do(r.build)
	return r.tools
}

// Tool returns the tool with the given name, matched case-insensitively.
func (r *Registry) Tool(name string) (*Tool, bool) {
	r.once.Do(r.build)
	t, ok := r.byName[strings.ToLower(name)]
	return t, ok
}

// build discovers all tool-eligible operations. Discovery order is the host
// application's registration order; on a name collision the first
// registration wins and the later one is logged and skipped. A schema
// failure for one tool never aborts discovery of the others.
func (r *Registry) build() {
	r.byName = make(map[string]*Tool)

	for _, op := range r.app.Operations() {
		meta := op.Tool
		if meta == nil {
			continue
		}
		if r.filter != nil && !r.filter(meta.Name) {
			r.logger.Debug("tool excluded by name filter", "tool", meta.Name)
			continue
		}

		key := strings.ToLower(meta.Name)
		if existing, exists := r.byName[key]; exists {
			r.logger.Warn("duplicate tool name, keeping first registration",
				"tool", meta.Name,
				"kept", existing.Method+" "+existing.Path,
				"skipped", op.Method+" "+op.Path,
			)
			continue
		}

		schemaJSON, err := schema.Build(op)
		if err != nil {
			r.logger.Error("schema generation failed, skipping tool",
				"tool", meta.Name,
				"error", err,
			)
			continue
		}

		tool := &Tool{
			Name:        meta.Name,
			Description: meta.Description,
			Tags:        meta.Tags,
			Roles:       meta.Roles,
			Policy:      meta.Policy,
			Method:      op.Method,
			Path:        op.Path,
			RouteParams: op.RouteParams(),
			QueryParams: op.QueryParams(),
			Body:        op.Body,
			SchemaJSON:  schemaJSON,
			Operation:   op,
		}
		r.byName[key] = tool
		r.tools = append(r.tools, tool)
	}

	r.logger.Info("tool registry built", "tool_count", len(r.tools))
}
