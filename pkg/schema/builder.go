// ABOUTME: Builds the merged JSON input schema for one tool-eligible operation.
// ABOUTME: Route, query, and body fields are flattened into top-level properties.

package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/host"
)

// Build produces the merged JSON Schema text for an operation: one property
// per route parameter, query parameter, and flattened body field. Route
// parameters are always required; query parameters and body fields only when
// marked so.
func Build(op *host.Operation) (string, error) {
	props := make(map[string]*jsonschema.Schema)
	var required []string

	add := func(name string, s *jsonschema.Schema, req bool) {
		props[name] = s
		if req {
			required = append(required, name)
		}
	}

	for _, p := range op.RouteParams() {
		add(CamelCase(p.Name), paramSchema(p), true)
	}
	for _, p := range op.QueryParams() {
		add(CamelCase(p.Name), paramSchema(p), p.Required)
	}

	if op.Body != nil {
		bodyProps, bodyRequired := bodyProperties(op.Body)
		for _, bp := range bodyProps {
			if _, exists := props[bp.name]; exists {
				return "", fmt.Errorf("body field %q collides with a route or query parameter", bp.name)
			}
			props[bp.name] = bp.schema
		}
		required = append(required, bodyRequired...)
	}

	root := &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
	out, err := json.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("marshaling schema: %w", err)
	}
	return string(out), nil
}

// paramSchema converts one parameter descriptor to a schema node.
func paramSchema(p host.Param) *jsonschema.Schema {
	s := &jsonschema.Schema{Description: p.Description}

	if len(p.Enum) > 0 {
		s.Type = "string"
		s.Enum = make([]any, len(p.Enum))
		for i, e := range p.Enum {
			s.Enum[i] = e
		}
	} else {
		s.Type = string(p.Type)
	}

	if p.Nullable {
		s.Types = []string{s.Type, "null"}
		s.Type = ""
	}

	applyConstraint(s, p.Constraint)
	return s
}

// namedSchema pairs a normalized property name with its schema node in a
// deterministic order.
type namedSchema struct {
	name   string
	schema *jsonschema.Schema
}

// bodyProperties flattens a body type's fields into schema properties.
// Reflection failures for the body type degrade to a single generic
// object-typed property carrying the body's bind name, never an error.
func bodyProperties(body *host.BodySpec) ([]namedSchema, []string) {
	reflected, err := reflectBody(body.Type)
	var reflectedProps map[string]*jsonschema.Schema
	if err == nil && reflected != nil {
		reflectedProps = reflected.Properties
	}

	if len(body.Fields) == 0 || (err != nil && reflectedProps == nil) {
		name := CamelCase(body.BindName)
		if name == "" {
			name = "body"
		}
		return []namedSchema{{name: name, schema: &jsonschema.Schema{Type: "object"}}}, nil
	}

	var out []namedSchema
	var required []string
	for _, f := range body.Fields {
		name := CamelCase(f.Name)

		// The descriptor's semantic type wins over reflection: text-marshaling
		// types such as uuid.UUID reflect as their underlying kind but travel
		// as strings on the wire.
		s := lookupProperty(reflectedProps, f.Name)
		if s == nil || !typeAgrees(s, f.Type) {
			s = &jsonschema.Schema{Type: string(f.Type)}
		}

		if f.Nullable {
			if len(s.Types) == 0 {
				base := s.Type
				if base == "" {
					base = string(f.Type)
				}
				s.Types = []string{base, "null"}
				s.Type = ""
			} else {
				s.Types = nullLast(s.Types)
			}
		}

		// Constraints from the host's validation tags are copied verbatim.
		// The reflected schema does not surface them, so this is also the
		// fallback extraction path for pattern-style rules.
		applyConstraint(s, f.Constraint)

		out = append(out, namedSchema{name: name, schema: s})
		if f.Required {
			required = append(required, name)
		}
	}
	return out, required
}

// typeAgrees reports whether a reflected schema node carries the field's
// semantic type, either directly or inside a nullable type array.
func typeAgrees(s *jsonschema.Schema, t host.ParamType) bool {
	if s.Type == string(t) {
		return true
	}
	for _, candidate := range s.Types {
		if candidate == string(t) {
			return true
		}
	}
	return false
}

// nullLast orders a nullable type array as [type, "null"], matching the
// shape parameter schemas emit.
func nullLast(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if t != "null" {
			out = append(out, t)
		}
	}
	return append(out, "null")
}

// reflectBody derives a schema for the body's Go type.
func reflectBody(t reflect.Type) (*jsonschema.Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("no body type")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return jsonschema.ForType(t, nil)
}

// lookupProperty finds the reflected property for a normalized field name,
// trying the exact spelling first and then re-cased variants.
func lookupProperty(props map[string]*jsonschema.Schema, name string) *jsonschema.Schema {
	if props == nil {
		return nil
	}
	for _, candidate := range recased(name) {
		if s, ok := props[candidate]; ok {
			return s
		}
	}
	return nil
}

// applyConstraint copies constraint metadata onto a schema node without
// overwriting values the schema already carries.
func applyConstraint(s *jsonschema.Schema, c host.Constraint) {
	if c.Pattern != "" && s.Pattern == "" {
		s.Pattern = c.Pattern
	}
	if c.Minimum != nil && s.Minimum == nil {
		s.Minimum = c.Minimum
	}
	if c.Maximum != nil && s.Maximum == nil {
		s.Maximum = c.Maximum
	}
	if c.MinLength != nil && s.MinLength == nil {
		s.MinLength = c.MinLength
	}
	if c.MaxLength != nil && s.MaxLength == nil {
		s.MaxLength = c.MaxLength
	}
}
