// ABOUTME: Declarative operation descriptors for the host application.
// ABOUTME: Operations carry route/query/body parameter metadata and tool-eligibility markers.

package host

import (
	"encoding"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// ParamKind identifies where a parameter is bound from.
type ParamKind string

const (
	ParamRoute ParamKind = "route"
	ParamQuery ParamKind = "query"
)

// ParamType is the semantic type of a parameter.
type ParamType string

const (
	TypeBoolean ParamType = "boolean"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeString  ParamType = "string"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// Param describes one route or query parameter of an operation.
type Param struct {
	Name        string
	Kind        ParamKind
	Type        ParamType
	Required    bool
	Description string
	Nullable    bool
	Enum        []string // legal values; implies string typing on the wire
	Constraint  Constraint
}

// Constraint holds validation bounds attached to a parameter or body field.
type Constraint struct {
	Pattern   string
	Minimum   *float64
	Maximum   *float64
	MinLength *int
	MaxLength *int
}

// Empty reports whether no constraint is set.
func (c Constraint) Empty() bool {
	return c.Pattern == "" && c.Minimum == nil && c.Maximum == nil &&
		c.MinLength == nil && c.MaxLength == nil
}

// ToolMeta marks an operation as tool-eligible and carries its exposure
// metadata. Operations without a ToolMeta are never exported as tools.
type ToolMeta struct {
	Name        string
	Description string
	Tags        []string
	Roles       []string // caller must hold at least one
	Policy      string   // optional named policy, evaluated by the application
}

// BodyField describes one top-level field of a request body type.
type BodyField struct {
	Name       string // wire name (json tag, falling back to the Go name)
	GoName     string
	Type       ParamType
	Required   bool
	Nullable   bool
	Constraint Constraint
}

// BodySpec describes an operation's request body: the Go type it decodes
// into plus the per-field validation rules derived from struct tags.
type BodySpec struct {
	Type     reflect.Type
	BindName string
	Fields   []BodyField
}

// Field returns the body field with the given wire name, matched
// case-insensitively.
func (b *BodySpec) Field(name string) (BodyField, bool) {
	for _, f := range b.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return BodyField{}, false
}

// BodyOf builds a BodySpec for the struct type T. The bind name is the
// host-side name of the body argument (informational; the payload itself is
// flattened).
func BodyOf[T any](bindName string) *BodySpec {
	t := reflect.TypeFor[T]()
	return &BodySpec{
		Type:     t,
		BindName: bindName,
		Fields:   reflectBodyFields(t),
	}
}

// reflectBodyFields walks the exported fields of a struct type and derives
// wire names, semantic types, and validation rules. Non-struct types yield
// no fields; callers treat that as an opaque payload.
func reflectBodyFields(t reflect.Type) []BodyField {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var fields []BodyField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
		}

		f := BodyField{
			Name:     name,
			GoName:   sf.Name,
			Type:     typeOf(sf.Type),
			Nullable: sf.Type.Kind() == reflect.Pointer,
		}
		if tag, ok := sf.Tag.Lookup("validate"); ok {
			required, constraint, err := ParseValidateTag(tag)
			if err == nil {
				f.Required = required
				f.Constraint = constraint
			}
		}
		fields = append(fields, f)
	}
	return fields
}

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

// typeOf maps a Go type to the semantic parameter type used by binding and
// schema generation. Types that marshal as text (time.Time, uuid.UUID) are
// strings on the wire regardless of their Go kind.
func typeOf(t reflect.Type) ParamType {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
		return TypeString
	}
	switch t.Kind() {
	case reflect.Bool:
		return TypeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger
	case reflect.Float32, reflect.Float64:
		return TypeNumber
	case reflect.String:
		return TypeString
	case reflect.Slice, reflect.Array:
		return TypeArray
	default:
		return TypeObject
	}
}

// ParseValidateTag parses a `validate` struct tag of the form
// "required,min=1,max=10,minLength=2,maxLength=64,pattern=^x". Returns the
// required flag and the constraint set.
func ParseValidateTag(tag string) (bool, Constraint, error) {
	var required bool
	var c Constraint

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == "required" {
			required = true
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return false, Constraint{}, fmt.Errorf("malformed validate directive %q", part)
		}
		switch key {
		case "pattern":
			c.Pattern = value
		case "min":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return false, Constraint{}, fmt.Errorf("parsing min %q: %w", value, err)
			}
			c.Minimum = &f
		case "max":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return false, Constraint{}, fmt.Errorf("parsing max %q: %w", value, err)
			}
			c.Maximum = &f
		case "minLength":
			n, err := strconv.Atoi(value)
			if err != nil {
				return false, Constraint{}, fmt.Errorf("parsing minLength %q: %w", value, err)
			}
			c.MinLength = &n
		case "maxLength":
			n, err := strconv.Atoi(value)
			if err != nil {
				return false, Constraint{}, fmt.Errorf("parsing maxLength %q: %w", value, err)
			}
			c.MaxLength = &n
		default:
			return false, Constraint{}, fmt.Errorf("unknown validate directive %q", key)
		}
	}
	return required, c, nil
}

// Operation is one addressable action of the host application: an HTTP
// method, a path template with {name} placeholders, parameter descriptors,
// and the handler that implements it.
type Operation struct {
	Method  string
	Path    string
	Params  []Param
	Body    *BodySpec
	Tool    *ToolMeta // nil means not tool-eligible
	Roles   []string  // authorization requirement enforced by the pipeline
	Policy  string
	Filters []Filter // operation-specific filters, run inside app filters

	Handler http.Handler

	// pipeline is the fully composed handler chain, built at registration.
	pipeline http.Handler
}

// RouteParams returns the operation's route parameters in declaration order.
func (o *Operation) RouteParams() []Param {
	return o.paramsOfKind(ParamRoute)
}

// QueryParams returns the operation's query parameters in declaration order.
func (o *Operation) QueryParams() []Param {
	return o.paramsOfKind(ParamQuery)
}

func (o *Operation) paramsOfKind(kind ParamKind) []Param {
	var out []Param
	for _, p := range o.Params {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Pipeline returns the composed handler chain for this operation. The same
// chain serves real inbound requests and synthetic bridge requests.
func (o *Operation) Pipeline() http.Handler {
	return o.pipeline
}
