// Package metrics defines the per-call instrumentation sink and two
// exporters, OpenTelemetry and Prometheus. The protocol server records one
// Call per dispatch; the default sink discards them.
package metrics
