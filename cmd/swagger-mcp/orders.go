// ABOUTME: Sample in-memory orders application mounted by the demo server.
// ABOUTME: Demonstrates route/query/body declarations and role-gated operations.

package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/host"
)

type order struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Status   string  `json:"status"`
	Comment  *string `json:"comment,omitempty"`
}

type createOrderRequest struct {
	Name     string  `json:"name" validate:"required,minLength=3"`
	Quantity int     `json:"quantity" validate:"min=1,max=100"`
	Comment  *string `json:"comment"`
}

// ordersController is a toy order book. All state is in memory; the point is
// exercising the bridge, not persistence.
type ordersController struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*order
}

func newOrdersController() *ordersController {
	c := &ordersController{nextID: 2, orders: make(map[int64]*order)}
	c.orders[1] = &order{ID: 1, Name: "sample widget", Quantity: 3, Status: "shipped"}
	return c
}

func (c *ordersController) Operations() []*host.Operation {
	return []*host.Operation{
		{
			Method: "GET",
			Path:   "/orders",
			Params: []host.Param{
				{Name: "status", Kind: host.ParamQuery, Type: host.TypeString,
					Enum: []string{"pending", "shipped", "cancelled"}},
				{Name: "limit", Kind: host.ParamQuery, Type: host.TypeInteger},
			},
			Tool: &host.ToolMeta{
				Name:        "list_orders",
				Description: "List orders, optionally filtered by *status*.",
				Tags:        []string{"orders", "read"},
			},
			Handler: http.HandlerFunc(c.list),
		},
		{
			Method: "GET",
			Path:   "/orders/{id}",
			Params: []host.Param{
				{Name: "id", Kind: host.ParamRoute, Type: host.TypeInteger,
					Description: "Order identifier"},
			},
			Tool: &host.ToolMeta{
				Name:        "get_order",
				Description: "Look up a single order by id.",
				Tags:        []string{"orders", "read"},
			},
			Handler: http.HandlerFunc(c.get),
		},
		{
			Method: "POST",
			Path:   "/orders",
			Body:   host.BodyOf[createOrderRequest]("order"),
			Tool: &host.ToolMeta{
				Name:        "create_order",
				Description: "Create a new order.",
				Tags:        []string{"orders", "write"},
			},
			Handler: http.HandlerFunc(c.create),
		},
		{
			Method: "DELETE",
			Path:   "/orders/{id}",
			Params: []host.Param{
				{Name: "id", Kind: host.ParamRoute, Type: host.TypeInteger},
			},
			Roles: []string{"admin"},
			Tool: &host.ToolMeta{
				Name:        "delete_order",
				Description: "Delete an order. Requires the admin role.",
				Tags:        []string{"orders", "write"},
				Roles:       []string{"admin"},
			},
			Handler: http.HandlerFunc(c.delete),
		},
	}
}

func (c *ordersController) list(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	c.mu.Lock()
	out := make([]*order, 0, len(c.orders))
	for _, o := range c.orders {
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (c *ordersController) get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	c.mu.Lock()
	o, ok := c.orders[id]
	c.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (c *ordersController) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	c.mu.Lock()
	o := &order{
		ID:       c.nextID,
		Name:     req.Name,
		Quantity: req.Quantity,
		Status:   "pending",
		Comment:  req.Comment,
	}
	c.orders[o.ID] = o
	c.nextID++
	c.mu.Unlock()

	writeJSON(w, http.StatusCreated, o)
}

func (c *ordersController) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	c.mu.Lock()
	_, ok := c.orders[id]
	delete(c.orders, id)
	c.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
