// ABOUTME: JSON-RPC 2.0 server exposing host operations as MCP tools.
// ABOUTME: Implements initialize, tools/list, and tools/call over a single HTTP endpoint.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/bridge"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/host"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/identity"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/metrics"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/registry"
)

// protocolVersion is the MCP protocol revision advertised on initialize.
const protocolVersion = "2025-03-26"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// defaultCorrelationHeader names the header carrying the correlation id.
const defaultCorrelationHeader = "X-Correlation-ID"

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request envelope. Method is kept
// raw so a non-string method is reported as an invalid request rather than a
// parse error.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  json.RawMessage `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// MCP-specific types

// ToolInfo represents an MCP tool definition as listed to clients.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListToolsResult is the result for tools/list.
type ListToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}

// CallToolParams are the params for tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult is the result for tools/call.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents one content block in a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// VisibilityFunc is a caller-supplied per-request predicate deciding whether
// a tool is visible to the request.
type VisibilityFunc func(r *http.Request, ident *identity.Identity, tool *registry.Tool) bool

// Config holds configuration for the protocol server.
type Config struct {
	Registry   *registry.Registry
	Dispatcher *bridge.Dispatcher
	Logger     *slog.Logger

	Identity   identity.Provider        // optional; nil means every caller is anonymous
	Policies   identity.PolicyEvaluator // optional; nil fails any policy-gated tool
	Visibility VisibilityFunc           // optional extra governance check
	Metrics    metrics.Sink             // optional; defaults to metrics.Noop

	ServerName        string
	ServerVersion     string
	CorrelationHeader string // defaults to X-Correlation-ID
}

// Server implements the JSON-RPC protocol state machine over the registry
// and dispatcher. Requests are stateless; there is no session.
type Server struct {
	registry   *registry.Registry
	dispatcher *bridge.Dispatcher
	logger     *slog.Logger
	provider   identity.Provider
	sink       metrics.Sink
	checks     []check

	serverName    string
	serverVersion string
	corrHeader    string
}

// NewServer creates a protocol server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := cfg.Metrics
	if sink == nil {
		sink = metrics.Noop{}
	}
	name := cfg.ServerName
	if name == "" {
		name = "swagger-mcp"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "dev"
	}
	header := cfg.CorrelationHeader
	if header == "" {
		header = defaultCorrelationHeader
	}

	return &Server{
		registry:      cfg.Registry,
		dispatcher:    cfg.Dispatcher,
		logger:        logger,
		provider:      cfg.Identity,
		sink:          sink,
		checks:        governanceChain(cfg.Policies, cfg.Visibility),
		serverName:    name,
		serverVersion: version,
		corrHeader:    header,
	}, nil
}

// RegisterRoutes registers the protocol endpoint and the informational
// catalog page on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/mcp", s.handleMCP)
	mux.HandleFunc("/mcp/catalog", s.handleCatalog)
}

// handleMCP serves the single protocol endpoint. POST carries JSON-RPC
// messages; GET answers with a static capability description.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodGet:
		s.handleProbe(w, r)
	default:
		w.Header().Set("Allow", "POST, GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handlePost processes one JSON-RPC message. Validation order: parse,
// jsonrpc marker, method, then method-specific params. Every JSON-RPC
// error, protocol-level ones included, goes out with a transport-success
// status; only the envelope's error object communicates failure.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	cid := r.Header.Get(s.corrHeader)
	if cid == "" {
		cid = uuid.New().String()
	}
	w.Header().Set(s.corrHeader, cid)
	ctx := host.WithCorrelationID(r.Context(), cid)

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("protocol handler panic", "correlation_id", cid, "panic", rec)
			s.sendError(w, nil, JSONRPCInternalError, "internal error", fmt.Sprint(rec))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendError(w, nil, JSONRPCParseError, "failed to read request body", nil)
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendError(w, nil, JSONRPCInvalidRequest, "request body too large", nil)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendError(w, nil, JSONRPCParseError, "invalid JSON", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.sendError(w, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
		return
	}

	var method string
	if len(req.Method) == 0 || json.Unmarshal(req.Method, &method) != nil || method == "" {
		s.sendError(w, req.ID, JSONRPCInvalidRequest, "method must be a string", nil)
		return
	}

	// Notifications carry no id and get no response body.
	if len(req.ID) == 0 || string(req.ID) == "null" {
		if !strings.HasPrefix(method, "notifications/") {
			s.logger.Warn("notification for non-notification method", "method", method)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	ident := s.resolveIdentity(r)
	ctx = identity.WithIdentity(ctx, ident)
	r = r.WithContext(ctx)

	s.logger.Debug("rpc request",
		"method", method,
		"correlation_id", cid,
	)

	switch method {
	case "initialize":
		s.handleInitialize(w, req)
	case "tools/list":
		s.handleToolsList(w, r, req, ident)
	case "tools/call":
		s.handleToolsCall(w, r, req, ident, cid)
	default:
		s.sendError(w, req.ID, JSONRPCMethodNotFound, "method not found", nil)
	}
}

// resolveIdentity asks the provider for the caller identity. Missing or
// failing credentials degrade to anonymous; governance denies from there.
func (s *Server) resolveIdentity(r *http.Request) *identity.Identity {
	if s.provider == nil {
		return nil
	}
	ident, err := s.provider.IdentityFromRequest(r)
	if err != nil {
		s.logger.Warn("identity resolution failed", "error", err)
		return nil
	}
	return ident
}

// handleInitialize answers the handshake. It always succeeds.
func (s *Server) handleInitialize(w http.ResponseWriter, req JSONRPCRequest) {
	result := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.serverName,
			"version": s.serverVersion,
		},
	}
	s.sendResult(w, req.ID, result)
}

// handleToolsList returns the catalog filtered by governance.
func (s *Server) handleToolsList(w http.ResponseWriter, r *http.Request, req JSONRPCRequest, ident *identity.Identity) {
	tools := s.visibleTools(r, ident)

	result := ListToolsResult{Tools: make([]ToolInfo, 0, len(tools))}
	for _, tool := range tools {
		result.Tools = append(result.Tools, ToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: json.RawMessage(tool.SchemaJSON),
		})
	}

	s.logger.Debug("tools/list", "count", len(result.Tools))
	s.sendResult(w, req.ID, result)
}

// handleToolsCall performs one dispatch. Unknown and hidden tools answer
// identically so a hidden tool's existence never leaks.
func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req JSONRPCRequest, ident *identity.Identity, cid string) {
	var params CallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}
	if params.Name == "" {
		s.sendError(w, req.ID, JSONRPCInvalidParams, "tool name is required", nil)
		return
	}

	args, err := decodeArguments(params.Arguments)
	if err != nil {
		s.sendError(w, req.ID, JSONRPCInvalidParams, "arguments must be an object", nil)
		return
	}

	tool, ok := s.registry.Tool(params.Name)
	if !ok || !s.allowed(r.Context(), r, ident, tool) {
		s.sendResult(w, req.ID, CallToolResult{
			Content: []Content{{Type: "text", Text: fmt.Sprintf("unknown tool: %s", params.Name)}},
			IsError: true,
		})
		return
	}

	start := time.Now()
	res := s.dispatcher.Dispatch(r.Context(), tool, args, r)
	elapsed := time.Since(start)

	s.sink.RecordCall(r.Context(), metrics.Call{
		Tool:          tool.Name,
		Status:        res.Status,
		IsError:       !res.Success,
		Duration:      elapsed,
		CorrelationID: cid,
	})

	text := res.Body
	if !res.Success {
		text = fmt.Sprintf("HTTP %d: %s", res.Status, res.Body)
	}

	s.logger.Debug("tools/call complete",
		"tool", tool.Name,
		"status", res.Status,
		"duration_ms", elapsed.Milliseconds(),
		"correlation_id", cid,
	)

	s.sendResult(w, req.ID, CallToolResult{
		Content: []Content{{Type: "text", Text: text}},
		IsError: !res.Success,
	})
}

// decodeArguments parses the arguments object preserving the textual form
// of numbers.
func decodeArguments(raw json.RawMessage) (bridge.Args, error) {
	args := make(bridge.Args)
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	return args, nil
}

// handleProbe answers a plain GET with a static capability description.
func (s *Server) handleProbe(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"protocolVersion": protocolVersion,
		"serverInfo": map[string]any{
			"name":    s.serverName,
			"version": s.serverVersion,
		},
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"transport": "http",
	})
}

// sendResult sends a successful JSON-RPC response.
func (s *Server) sendResult(w http.ResponseWriter, id json.RawMessage, result any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

// sendError sends a JSON-RPC error response. Transport status stays 200.
func (s *Server) sendError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC error response", "error", err)
	}
}

// visibleTools applies the governance chain to the full catalog.
func (s *Server) visibleTools(r *http.Request, ident *identity.Identity) []*registry.Tool {
	var out []*registry.Tool
	for _, tool := range s.registry.Tools() {
		if s.allowed(r.Context(), r, ident, tool) {
			out = append(out, tool)
		}
	}
	return out
}

// allowed runs the ordered governance checks; all must pass.
func (s *Server) allowed(ctx context.Context, r *http.Request, ident *identity.Identity, tool *registry.Tool) bool {
	for _, c := range s.checks {
		if !c(ctx, r, ident, tool) {
			return false
		}
	}
	return true
}
