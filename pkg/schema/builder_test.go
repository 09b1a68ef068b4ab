// ABOUTME: Tests for merged schema generation from operation metadata.
// ABOUTME: Covers required propagation, nullability, enums, constraints, and fallbacks.

package schema

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/host"
)

func noopHandler() http.Handler {
	return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
}

// parse unmarshals the schema text and returns the root object plus its
// properties and required list.
func parse(t *testing.T, schemaJSON string) (map[string]any, map[string]any, []string) {
	t.Helper()
	var root map[string]any
	require.NoError(t, json.Unmarshal([]byte(schemaJSON), &root))

	props, _ := root["properties"].(map[string]any)
	var required []string
	if raw, ok := root["required"].([]any); ok {
		for _, r := range raw {
			required = append(required, r.(string))
		}
	}
	return root, props, required
}

func TestBuildMergesParameterSources(t *testing.T) {
	min := 1.0
	op := &host.Operation{
		Method: "GET",
		Path:   "/orders/{id}",
		Params: []host.Param{
			{Name: "id", Kind: host.ParamRoute, Type: host.TypeInteger, Description: "order id"},
			{Name: "limit", Kind: host.ParamQuery, Type: host.TypeInteger, Required: true,
				Constraint: host.Constraint{Minimum: &min}},
			{Name: "cursor", Kind: host.ParamQuery, Type: host.TypeString},
		},
		Handler: noopHandler(),
	}

	out, err := Build(op)
	require.NoError(t, err)

	root, props, required := parse(t, out)
	assert.Equal(t, "object", root["type"])

	assert.Contains(t, props, "id")
	assert.Contains(t, props, "limit")
	assert.Contains(t, props, "cursor")

	// Route params are always required; query params only when marked.
	assert.Contains(t, required, "id")
	assert.Contains(t, required, "limit")
	assert.NotContains(t, required, "cursor")

	// Required never names an absent property.
	for _, r := range required {
		assert.Contains(t, props, r)
	}

	limit := props["limit"].(map[string]any)
	assert.Equal(t, "integer", limit["type"])
	assert.EqualValues(t, 1, limit["minimum"])
}

func TestBuildNullableType(t *testing.T) {
	op := &host.Operation{
		Method: "GET",
		Path:   "/stats",
		Params: []host.Param{
			{Name: "scale", Kind: host.ParamQuery, Type: host.TypeNumber, Nullable: true},
		},
		Handler: noopHandler(),
	}

	out, err := Build(op)
	require.NoError(t, err)
	_, props, _ := parse(t, out)

	scale := props["scale"].(map[string]any)
	types, ok := scale["type"].([]any)
	require.True(t, ok, "nullable type must be an array, got %v", scale["type"])
	require.Len(t, types, 2)
	assert.Equal(t, "number", types[0])
	assert.Equal(t, "null", types[1])
}

func TestBuildEnum(t *testing.T) {
	op := &host.Operation{
		Method: "GET",
		Path:   "/orders",
		Params: []host.Param{
			{Name: "status", Kind: host.ParamQuery, Type: host.TypeString,
				Enum: []string{"open", "shipped", "cancelled"}},
		},
		Handler: noopHandler(),
	}

	out, err := Build(op)
	require.NoError(t, err)
	_, props, _ := parse(t, out)

	status := props["status"].(map[string]any)
	assert.Equal(t, "string", status["type"])
	assert.ElementsMatch(t, []any{"open", "shipped", "cancelled"}, status["enum"].([]any))
}

type orderBody struct {
	Name    string  `json:"name" validate:"required,minLength=2,pattern=^[a-z]+$"`
	Count   int     `json:"count" validate:"required,min=1,max=100"`
	Comment *string `json:"comment"`
	Weight  float64 `json:"Weight"`
}

func TestBuildFlattensBody(t *testing.T) {
	op := &host.Operation{
		Method:  "POST",
		Path:    "/orders",
		Body:    host.BodyOf[orderBody]("order"),
		Handler: noopHandler(),
	}

	out, err := Build(op)
	require.NoError(t, err)
	_, props, required := parse(t, out)

	// Body fields are flattened as top-level camelCase properties.
	require.Contains(t, props, "name")
	require.Contains(t, props, "count")
	require.Contains(t, props, "comment")
	require.Contains(t, props, "weight")

	assert.Contains(t, required, "name")
	assert.Contains(t, required, "count")
	assert.NotContains(t, required, "comment")

	name := props["name"].(map[string]any)
	assert.Equal(t, "^[a-z]+$", name["pattern"])
	assert.EqualValues(t, 2, name["minLength"])

	count := props["count"].(map[string]any)
	assert.EqualValues(t, 1, count["minimum"])
	assert.EqualValues(t, 100, count["maximum"])

	comment := props["comment"].(map[string]any)
	types, ok := comment["type"].([]any)
	require.True(t, ok)
	assert.Contains(t, types, "null")
}

type auditBody struct {
	When time.Time `json:"when"`
	Who  uuid.UUID `json:"who"`
	N    *int      `json:"n"`
}

func TestBuildTextMarshalingBodyFields(t *testing.T) {
	op := &host.Operation{
		Method:  "POST",
		Path:    "/audit",
		Body:    host.BodyOf[auditBody]("entry"),
		Handler: noopHandler(),
	}

	out, err := Build(op)
	require.NoError(t, err)
	_, props, _ := parse(t, out)

	// Text-marshaling types travel as strings, never as their Go kind
	// (uuid.UUID is a byte array underneath).
	when := props["when"].(map[string]any)
	assert.Equal(t, "string", when["type"])
	who := props["who"].(map[string]any)
	assert.Equal(t, "string", who["type"])
	assert.NotContains(t, who, "items")

	// Nullable body fields order the type array as [type, "null"], matching
	// the parameter path.
	n := props["n"].(map[string]any)
	types, ok := n["type"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"integer", "null"}, types)
}

type opaqueBody struct {
	Stream chan int `json:"stream"`
}

func TestBuildBodyReflectionFallback(t *testing.T) {
	op := &host.Operation{
		Method:  "POST",
		Path:    "/ingest",
		Body:    host.BodyOf[opaqueBody]("payload"),
		Handler: noopHandler(),
	}

	out, err := Build(op)
	require.NoError(t, err)
	_, props, _ := parse(t, out)

	// Reflection failure degrades to one generic object-typed property.
	require.Len(t, props, 1)
	payload := props["payload"].(map[string]any)
	assert.Equal(t, "object", payload["type"])
}

func TestBuildRejectsBodyParamCollision(t *testing.T) {
	op := &host.Operation{
		Method: "POST",
		Path:   "/orders/{name}",
		Params: []host.Param{
			{Name: "name", Kind: host.ParamRoute, Type: host.TypeString},
		},
		Body:    host.BodyOf[orderBody]("order"),
		Handler: noopHandler(),
	}

	_, err := Build(op)
	require.ErrorContains(t, err, "collides")
}

func TestBuildRoundTrips(t *testing.T) {
	op := &host.Operation{
		Method:  "POST",
		Path:    "/orders",
		Body:    host.BodyOf[orderBody]("order"),
		Handler: noopHandler(),
	}
	out, err := Build(op)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestCamelCase(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"Name":       "name",
		"name":       "name",
		"ID":         "id",
		"OrderID":    "orderID",
		"HTTPStatus": "httpStatus",
		"order_id":   "order_id",
	}
	for in, want := range cases {
		assert.Equal(t, want, CamelCase(in), "CamelCase(%q)", in)
	}
}
