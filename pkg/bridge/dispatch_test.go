// ABOUTME: Tests for end-to-end dispatch through the genuine host pipeline.

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/host"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/registry"
)

// newOrdersApp wires a small host app with one lookup tool, one panicking
// tool, and one tool that blocks until its context is done.
func newOrdersApp(t *testing.T) (*host.App, *registry.Registry) {
	t.Helper()
	app := host.NewApp(host.Config{})

	require.NoError(t, app.Register(&host.Operation{
		Method: "GET",
		Path:   "/orders/{id}",
		Params: []host.Param{
			{Name: "id", Kind: host.ParamRoute, Type: host.TypeInteger},
		},
		Tool: &host.ToolMeta{Name: "get_order"},
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.PathValue("id") != "1" {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":"order not found"}`)
				return
			}
			fmt.Fprint(w, `{"id":1,"status":"shipped"}`)
		}),
	}))

	require.NoError(t, app.Register(&host.Operation{
		Method: "GET",
		Path:   "/explode",
		Tool:   &host.ToolMeta{Name: "explode"},
		Handler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}),
	}))

	require.NoError(t, app.Register(&host.Operation{
		Method: "GET",
		Path:   "/slow",
		Tool:   &host.ToolMeta{Name: "slow"},
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}),
	}))

	return app, registry.New(registry.Config{App: app})
}

func mustTool(t *testing.T, reg *registry.Registry, name string) *registry.Tool {
	t.Helper()
	tool, ok := reg.Tool(name)
	require.True(t, ok, "tool %q not registered", name)
	return tool
}

func TestDispatchSuccess(t *testing.T) {
	app, reg := newOrdersApp(t)
	d := NewDispatcher(Config{App: app})

	res := d.Dispatch(context.Background(), mustTool(t, reg, "get_order"),
		Args{"id": json.Number("1")}, nil)

	assert.True(t, res.Success)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "application/json", res.ContentType)
	assert.JSONEq(t, `{"id":1,"status":"shipped"}`, res.Body)
}

func TestDispatchNonSuccessKeepsBody(t *testing.T) {
	app, reg := newOrdersApp(t)
	d := NewDispatcher(Config{App: app})

	res := d.Dispatch(context.Background(), mustTool(t, reg, "get_order"),
		Args{"id": json.Number("9999")}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Contains(t, res.Body, "order not found")
}

func TestDispatchBindFailure(t *testing.T) {
	app, reg := newOrdersApp(t)
	d := NewDispatcher(Config{App: app})

	res := d.Dispatch(context.Background(), mustTool(t, reg, "get_order"), Args{}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Contains(t, res.Body, "id")
}

func TestDispatchValidationFailure(t *testing.T) {
	app, reg := newOrdersApp(t)
	d := NewDispatcher(Config{App: app})

	res := d.Dispatch(context.Background(), mustTool(t, reg, "get_order"),
		Args{"id": "not-an-int"}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Contains(t, res.Body, "id")
}

func TestDispatchHandlerPanic(t *testing.T) {
	app, reg := newOrdersApp(t)
	d := NewDispatcher(Config{App: app})

	res := d.Dispatch(context.Background(), mustTool(t, reg, "explode"), Args{}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
}

func TestDispatchCancellation(t *testing.T) {
	app, reg := newOrdersApp(t)
	d := NewDispatcher(Config{App: app})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := d.Dispatch(ctx, mustTool(t, reg, "slow"), Args{}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, statusClientClosedRequest, res.Status)
}

func TestDispatchTimeout(t *testing.T) {
	app, reg := newOrdersApp(t)
	d := NewDispatcher(Config{App: app, CallTimeout: 20 * time.Millisecond})

	res := d.Dispatch(context.Background(), mustTool(t, reg, "slow"), Args{}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, http.StatusGatewayTimeout, res.Status)
}

func TestDispatchScopeClosesAfterCall(t *testing.T) {
	app := host.NewApp(host.Config{})
	closed := make(chan string, 2)
	require.NoError(t, app.Register(&host.Operation{
		Method: "GET",
		Path:   "/scoped",
		Tool:   &host.ToolMeta{Name: "scoped"},
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := ScopeFromContext(r.Context())
			require.NotNil(t, scope)
			scope.OnClose(func() { closed <- "first" })
			scope.OnClose(func() { closed <- "second" })
			w.WriteHeader(http.StatusNoContent)
		}),
	}))
	reg := registry.New(registry.Config{App: app})
	d := NewDispatcher(Config{App: app})

	res := d.Dispatch(context.Background(), mustTool(t, reg, "scoped"), Args{}, nil)
	require.True(t, res.Success)

	// Reverse registration order.
	assert.Equal(t, "second", <-closed)
	assert.Equal(t, "first", <-closed)
}

func TestDispatchScopesAreIndependent(t *testing.T) {
	app := host.NewApp(host.Config{})
	var ids []string
	require.NoError(t, app.Register(&host.Operation{
		Method: "GET",
		Path:   "/scoped",
		Tool:   &host.ToolMeta{Name: "scoped"},
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ids = append(ids, ScopeFromContext(r.Context()).ID())
			w.WriteHeader(http.StatusNoContent)
		}),
	}))
	reg := registry.New(registry.Config{App: app})
	d := NewDispatcher(Config{App: app})

	tool := mustTool(t, reg, "scoped")
	d.Dispatch(context.Background(), tool, Args{}, nil)
	d.Dispatch(context.Background(), tool, Args{}, nil)

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}
