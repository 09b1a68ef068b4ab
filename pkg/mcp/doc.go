// Package mcp implements the Model Context Protocol server over the tool
// registry.
//
// # Protocol
//
// The server speaks JSON-RPC 2.0 over a single HTTP endpoint:
//
//   - POST /mcp - JSON-RPC requests (initialize, tools/list, tools/call)
//   - GET /mcp - static capability description
//   - GET /mcp/catalog - informational HTML tool catalog
//
// Every JSON-RPC error, protocol-level ones included, rides an HTTP 200;
// only the error object in the envelope signals failure. Notifications
// (requests without an id) are acknowledged with 202 and no body.
//
// # Tool execution
//
//	{
//	  "jsonrpc": "2.0",
//	  "method": "tools/call",
//	  "params": {
//	    "name": "get_order",
//	    "arguments": {"id": 42}
//	  },
//	  "id": 1
//	}
//
// Host-side failures (validation, authorization, handler errors) come back
// as error-flagged results carrying the HTTP status and response body, not
// as JSON-RPC errors.
//
// # Governance
//
// Tool visibility runs an ordered chain of checks: role membership, named
// policy, then an optional per-request predicate. The same chain gates
// tools/list, tools/call, and the catalog page, and a caller invoking a tool
// it cannot see gets the same answer as for a tool that does not exist.
package mcp
