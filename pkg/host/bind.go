// ABOUTME: Parameter binding and validation filter for host operations.
// ABOUTME: Checks route/query/body values against descriptors before the handler runs.

package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

const boundArgsKey contextKey = "bound_args"

// Args returns the typed route and query values bound for the request, or
// nil if the binding filter has not run.
func Args(ctx context.Context) map[string]any {
	args, _ := ctx.Value(boundArgsKey).(map[string]any)
	return args
}

// bindFilter validates route, query, and body values against the
// operation's parameter descriptors. Violations produce a 400 response
// naming the offending parameter or field; the handler never runs.
func (a *App) bindFilter(op *Operation) Filter {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			args := make(map[string]any)

			for _, p := range op.Params {
				var raw string
				var present bool
				switch p.Kind {
				case ParamRoute:
					raw = r.PathValue(p.Name)
					present = raw != ""
				case ParamQuery:
					if vals, ok := r.URL.Query()[p.Name]; ok && len(vals) > 0 {
						raw = vals[0]
						present = true
					}
				}

				// Route parameters are always required.
				if !present {
					if p.Kind == ParamRoute || p.Required {
						writeError(w, http.StatusBadRequest,
							fmt.Sprintf("missing required parameter %q", p.Name))
						return
					}
					continue
				}

				val, err := convertParam(p, raw)
				if err != nil {
					writeError(w, http.StatusBadRequest, err.Error())
					return
				}
				args[p.Name] = val
			}

			if op.Body != nil {
				restored, err := a.validateBody(op.Body, r)
				if err != nil {
					writeError(w, http.StatusBadRequest, err.Error())
					return
				}
				r.Body = restored
			}

			ctx := context.WithValue(r.Context(), boundArgsKey, args)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// convertParam parses a raw string value according to the parameter's
// semantic type and checks its constraints.
func convertParam(p Param, raw string) (any, error) {
	if len(p.Enum) > 0 {
		for _, e := range p.Enum {
			if raw == e {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("invalid value for parameter %q: must be one of %s",
			p.Name, strings.Join(p.Enum, ", "))
	}

	var val any
	switch p.Type {
	case TypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for parameter %q: expected integer", p.Name)
		}
		val = n
	case TypeNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for parameter %q: expected number", p.Name)
		}
		val = f
	case TypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid value for parameter %q: expected boolean", p.Name)
		}
		val = b
	default:
		val = raw
	}

	if err := checkConstraint(p.Constraint, p.Name, "parameter", val, raw); err != nil {
		return nil, err
	}
	return val, nil
}

// validateBody decodes the request body, checks required fields and field
// constraints, and returns a replacement body for the handler to consume.
func (a *App) validateBody(spec *BodySpec, r *http.Request) (io.ReadCloser, error) {
	var buf []byte
	if r.Body != nil {
		var err error
		buf, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
	}
	restored := io.NopCloser(bytes.NewReader(buf))

	payload := make(map[string]any)
	if len(bytes.TrimSpace(buf)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(buf))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("malformed JSON body")
		}
	}

	// Case-insensitive view of the supplied fields, matching the decoder's
	// own field matching rules.
	supplied := make(map[string]any, len(payload))
	for k, v := range payload {
		supplied[strings.ToLower(k)] = v
	}

	var missing []string
	for _, f := range spec.Fields {
		v, ok := supplied[strings.ToLower(f.Name)]
		if !ok || v == nil {
			if f.Required {
				missing = append(missing, f.Name)
			}
			continue
		}
		raw := ""
		if s, isStr := v.(string); isStr {
			raw = s
		}
		if err := checkConstraint(f.Constraint, f.Name, "field", v, raw); err != nil {
			return nil, err
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required field %s", quoteJoin(missing))
	}

	return restored, nil
}

// checkConstraint applies pattern, bound, and length rules to a value.
func checkConstraint(c Constraint, name, what string, val any, raw string) error {
	if c.Empty() {
		return nil
	}

	if c.Pattern != "" {
		s := raw
		if s == "" {
			if str, ok := val.(string); ok {
				s = str
			}
		}
		matched, err := regexp.MatchString(c.Pattern, s)
		if err != nil || !matched {
			return fmt.Errorf("invalid value for %s %q: must match pattern %s", what, name, c.Pattern)
		}
	}

	if c.Minimum != nil || c.Maximum != nil {
		if f, ok := numericValue(val); ok {
			if c.Minimum != nil && f < *c.Minimum {
				return fmt.Errorf("invalid value for %s %q: must be >= %v", what, name, *c.Minimum)
			}
			if c.Maximum != nil && f > *c.Maximum {
				return fmt.Errorf("invalid value for %s %q: must be <= %v", what, name, *c.Maximum)
			}
		}
	}

	if c.MinLength != nil || c.MaxLength != nil {
		if s, ok := val.(string); ok {
			if c.MinLength != nil && len(s) < *c.MinLength {
				return fmt.Errorf("invalid value for %s %q: length must be >= %d", what, name, *c.MinLength)
			}
			if c.MaxLength != nil && len(s) > *c.MaxLength {
				return fmt.Errorf("invalid value for %s %q: length must be <= %d", what, name, *c.MaxLength)
			}
		}
	}
	return nil
}

// numericValue extracts a float from int64, float64, or json.Number values.
func numericValue(val any) (float64, bool) {
	switch v := val.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// quoteJoin renders field names as a quoted, comma-separated list.
func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return strings.Join(quoted, ", ")
}
