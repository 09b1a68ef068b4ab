// ABOUTME: Builds synthetic in-process requests that reproduce a real inbound request.
// ABOUTME: Substitutes path placeholders, assembles query strings, and serializes JSON bodies.

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/identity"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/registry"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/schema"
)

// Args maps argument names to loosely typed JSON values for one invocation.
// Numbers should be decoded as json.Number so their textual form survives
// coercion. Lookup is case-insensitive.
type Args map[string]any

// lookup finds an argument by name, case-insensitively.
func (a Args) lookup(name string) (any, bool) {
	if v, ok := a[name]; ok {
		return v, true
	}
	for k, v := range a {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// BindError reports a client-input failure while constructing a synthetic
// request.
type BindError struct {
	Argument string
	Reason   string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("cannot bind argument %q: %s", e.Argument, e.Reason)
}

// NewRequest constructs a synthetic request for one tool invocation. The
// result is indistinguishable to the host pipeline from a real inbound
// request: method and path come from the descriptor, placeholders are
// substituted with percent-encoded argument values, query arguments become
// the query string, and remaining arguments form the JSON body when the
// descriptor declares one. The caller identity and active scope travel on
// the request context; origin, when present, contributes the configured
// allow-list of forwarded headers.
func NewRequest(ctx context.Context, tool *registry.Tool, args Args, scope *Scope,
	ident *identity.Identity, origin *http.Request, forwardHeaders []string) (*http.Request, error) {

	consumed := make(map[string]bool)

	path := tool.Path
	for _, p := range tool.RouteParams {
		val, ok := args.lookup(p.Name)
		if !ok {
			if v, okAlt := args.lookup(schema.CamelCase(p.Name)); okAlt {
				val, ok = v, true
			}
		}
		if !ok {
			return nil, &BindError{Argument: p.Name, Reason: "missing route argument"}
		}
		consumed[strings.ToLower(p.Name)] = true
		consumed[strings.ToLower(schema.CamelCase(p.Name))] = true
		path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(coerce(val)))
	}

	query := url.Values{}
	for _, p := range tool.QueryParams {
		val, ok := args.lookup(p.Name)
		if !ok {
			if v, okAlt := args.lookup(schema.CamelCase(p.Name)); okAlt {
				val, ok = v, true
			}
		}
		if !ok {
			continue
		}
		consumed[strings.ToLower(p.Name)] = true
		consumed[strings.ToLower(schema.CamelCase(p.Name))] = true
		query.Set(p.Name, coerce(val))
	}

	var body *bytes.Reader
	if tool.Body != nil {
		payload := make(map[string]any)
		for name, val := range args {
			if consumed[strings.ToLower(name)] {
				continue
			}
			payload[schema.CamelCase(name)] = val
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &BindError{Argument: tool.Body.BindName, Reason: err.Error()}
		}
		body = bytes.NewReader(encoded)
	}

	target := path
	if qs := query.Encode(); qs != "" {
		target += "?" + qs
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, tool.Method, target, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, tool.Method, target, nil)
	}
	if err != nil {
		return nil, &BindError{Argument: "path", Reason: err.Error()}
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if origin != nil {
		for _, name := range forwardHeaders {
			if v := origin.Header.Get(name); v != "" {
				req.Header.Set(name, v)
			}
		}
	}

	// Route values normally come from the router; synthetic requests bypass
	// it, so they are set here.
	for _, p := range tool.RouteParams {
		if val, ok := args.lookup(p.Name); ok {
			req.SetPathValue(p.Name, coerce(val))
		} else if val, ok := args.lookup(schema.CamelCase(p.Name)); ok {
			req.SetPathValue(p.Name, coerce(val))
		}
	}

	reqCtx := req.Context()
	if ident != nil {
		reqCtx = identity.WithIdentity(reqCtx, ident)
	}
	if scope != nil {
		reqCtx = WithScope(reqCtx, scope)
	}
	return req.WithContext(reqCtx), nil
}

// coerce renders an argument value in its string form: strings literally,
// numbers in their raw textual form, booleans as true/false, null as the
// empty string, and anything else as raw JSON text.
func coerce(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		// Arguments decoded without UseNumber land here.
		return trimFloat(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// trimFloat renders a float without a spurious trailing ".0" for integral
// values, matching the raw textual form of the original JSON number.
func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
