// ABOUTME: Tests for operation registration and the composed request pipeline.
// ABOUTME: Covers binding validation, authorization, correlation, and panic recovery.

package host

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/identity"
)

type createOrderRequest struct {
	Name  string  `json:"name" validate:"required,minLength=2"`
	Count int     `json:"count" validate:"required,min=1"`
	Note  *string `json:"note"`
}

func newTestApp(t *testing.T, provider identity.Provider) *App {
	t.Helper()
	return NewApp(Config{Identity: provider})
}

func getOrderOp() *Operation {
	return &Operation{
		Method: http.MethodGet,
		Path:   "/orders/{id}",
		Params: []Param{
			{Name: "id", Kind: ParamRoute, Type: TypeInteger},
			{Name: "verbose", Kind: ParamQuery, Type: TypeBoolean},
		},
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			args := Args(r.Context())
			id := args["id"].(int64)
			if id != 1 {
				writeError(w, http.StatusNotFound, "order not found")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"id":%d,"status":"shipped"}`, id)
		}),
	}
}

func createOrderOp() *Operation {
	return &Operation{
		Method: http.MethodPost,
		Path:   "/orders",
		Body:   BodyOf[createOrderRequest]("order"),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req createOrderRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "malformed body")
				return
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"name":%q,"count":%d}`, req.Name, req.Count)
		}),
	}
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t, nil)

	t.Run("rejects missing handler", func(t *testing.T) {
		err := app.Register(&Operation{Method: "GET", Path: "/x"})
		require.Error(t, err)
	})

	t.Run("rejects undeclared placeholder", func(t *testing.T) {
		err := app.Register(&Operation{
			Method:  "GET",
			Path:    "/things/{id}",
			Handler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}),
		})
		require.ErrorContains(t, err, "placeholder")
	})

	t.Run("rejects duplicate route", func(t *testing.T) {
		op := func() *Operation {
			return &Operation{
				Method:  "GET",
				Path:    "/dup",
				Handler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}),
			}
		}
		require.NoError(t, app.Register(op()))
		err := app.Register(op())
		require.ErrorIs(t, err, ErrDuplicateRoute)
	})
}

func TestPipelineBinding(t *testing.T) {
	app := newTestApp(t, nil)
	require.NoError(t, app.Register(getOrderOp()))
	require.NoError(t, app.Register(createOrderOp()))

	do := func(method, target, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, target, nil)
		}
		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, req)
		return rr
	}

	t.Run("binds and serves a valid request", func(t *testing.T) {
		rr := do("GET", "/orders/1", "")
		require.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.EqualValues(t, 1, resp["id"])
	})

	t.Run("unknown id reaches the handler and yields 404", func(t *testing.T) {
		rr := do("GET", "/orders/9999", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "order not found")
	})

	t.Run("non-integer route value yields 400 naming the parameter", func(t *testing.T) {
		rr := do("GET", "/orders/not-an-int", "")
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"id"`)
		assert.Contains(t, rr.Body.String(), "integer")
	})

	t.Run("invalid query boolean yields 400", func(t *testing.T) {
		rr := do("GET", "/orders/1?verbose=maybe", "")
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"verbose"`)
	})

	t.Run("valid body passes validation", func(t *testing.T) {
		rr := do("POST", "/orders", `{"name":"widget","count":2}`)
		require.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("missing required body fields yield 400 naming them", func(t *testing.T) {
		rr := do("POST", "/orders", `{"count":2}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `name`)
	})

	t.Run("body constraint violations yield 400", func(t *testing.T) {
		rr := do("POST", "/orders", `{"name":"x","count":2}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "length")
	})

	t.Run("malformed JSON body yields 400", func(t *testing.T) {
		rr := do("POST", "/orders", `{"name":`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "malformed JSON body")
	})
}

func TestPipelineAuthorization(t *testing.T) {
	provider := identity.NewTokenProvider()
	adminToken := provider.IssueToken("alice", []string{"admin"})
	userToken := provider.IssueToken("bob", []string{"user"})

	app := newTestApp(t, provider)
	require.NoError(t, app.Register(&Operation{
		Method: "DELETE",
		Path:   "/orders/{id}",
		Roles:  []string{"admin"},
		Params: []Param{{Name: "id", Kind: ParamRoute, Type: TypeInteger}},
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	}))

	do := func(token string) int {
		req := httptest.NewRequest("DELETE", "/orders/1", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, req)
		return rr.Code
	}

	t.Run("anonymous yields 401", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(""))
	})
	t.Run("wrong role yields 403", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, do(userToken))
	})
	t.Run("matching role passes", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, do(adminToken))
	})
}

func TestPipelineCorrelation(t *testing.T) {
	app := newTestApp(t, nil)
	var seen string
	require.NoError(t, app.Register(&Operation{
		Method: "GET",
		Path:   "/ping",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = CorrelationID(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
	}))

	t.Run("echoes an inbound correlation id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ping", nil)
		req.Header.Set("X-Correlation-ID", "corr-123")
		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, req)
		assert.Equal(t, "corr-123", rr.Header().Get("X-Correlation-ID"))
		assert.Equal(t, "corr-123", seen)
	})

	t.Run("generates one when absent", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest("GET", "/ping", nil))
		assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
	})
}

func TestPipelineRecovery(t *testing.T) {
	app := newTestApp(t, nil)
	require.NoError(t, app.Register(&Operation{
		Method: "GET",
		Path:   "/boom",
		Handler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("kaboom")
		}),
	}))

	rr := httptest.NewRecorder()
	app.ServeHTTP(rr, httptest.NewRequest("GET", "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

type ordersController struct{}

func (ordersController) Operations() []*Operation {
	return []*Operation{getOrderOp(), createOrderOp()}
}

func TestMountController(t *testing.T) {
	app := newTestApp(t, nil)
	require.NoError(t, app.Mount(ordersController{}))
	assert.Len(t, app.Operations(), 2)

	rr := httptest.NewRecorder()
	app.ServeHTTP(rr, httptest.NewRequest("GET", "/orders/1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestParseValidateTag(t *testing.T) {
	required, c, err := ParseValidateTag("required,min=1,max=10,minLength=2,maxLength=8,pattern=^a")
	require.NoError(t, err)
	assert.True(t, required)
	assert.Equal(t, "^a", c.Pattern)
	assert.Equal(t, 1.0, *c.Minimum)
	assert.Equal(t, 10.0, *c.Maximum)
	assert.Equal(t, 2, *c.MinLength)
	assert.Equal(t, 8, *c.MaxLength)

	_, _, err = ParseValidateTag("bogus=1")
	require.Error(t, err)
}

func TestBodyOf(t *testing.T) {
	spec := BodyOf[createOrderRequest]("order")
	require.Len(t, spec.Fields, 3)

	name, ok := spec.Field("NAME")
	require.True(t, ok)
	assert.True(t, name.Required)
	assert.Equal(t, TypeString, name.Type)
	assert.Equal(t, 2, *name.Constraint.MinLength)

	note, ok := spec.Field("note")
	require.True(t, ok)
	assert.False(t, note.Required)
	assert.True(t, note.Nullable)
}

func TestBodyOfTextMarshalingTypes(t *testing.T) {
	type auditEntry struct {
		At   time.Time  `json:"at"`
		By   uuid.UUID  `json:"by"`
		Prev *uuid.UUID `json:"prev"`
		Tags []string   `json:"tags"`
	}
	spec := BodyOf[auditEntry]("entry")

	// Types that marshal as text are strings on the wire, whatever their Go
	// kind (uuid.UUID is [16]byte underneath).
	at, ok := spec.Field("at")
	require.True(t, ok)
	assert.Equal(t, TypeString, at.Type)

	by, ok := spec.Field("by")
	require.True(t, ok)
	assert.Equal(t, TypeString, by.Type)

	prev, ok := spec.Field("prev")
	require.True(t, ok)
	assert.Equal(t, TypeString, prev.Type)
	assert.True(t, prev.Nullable)

	tags, ok := spec.Field("tags")
	require.True(t, ok)
	assert.Equal(t, TypeArray, tags.Type)
}
