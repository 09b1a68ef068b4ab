// ABOUTME: Metrics sink interface for per-call tool invocation telemetry.
// ABOUTME: A no-op default keeps instrumentation optional.

package metrics

import (
	"context"
	"time"
)

// Call describes one completed tool invocation.
type Call struct {
	Tool          string
	Status        int
	IsError       bool
	Duration      time.Duration
	CorrelationID string
}

// Sink receives one event per tool call.
type Sink interface {
	RecordCall(ctx context.Context, call Call)
}

// Noop is a Sink that discards everything.
type Noop struct{}

// RecordCall implements Sink.
func (Noop) RecordCall(context.Context, Call) {}
