// Package bridge turns tool invocations into synthetic in-process requests.
//
// NewRequest maps JSON-RPC arguments onto a descriptor's route placeholders,
// query string, and JSON body, producing an *http.Request the host pipeline
// cannot distinguish from real traffic. The Dispatcher drives that request
// through the operation's composed pipeline inside an isolated per-call
// Scope, records the response in memory, and normalizes every failure mode
// (binding errors, panics, cancellation, timeouts) into a Result.
package bridge
