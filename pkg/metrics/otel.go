// ABOUTME: OpenTelemetry sink recording tool call counters and duration histograms.

package metrics

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelSink records tool invocation metrics through an OpenTelemetry meter.
type OTelSink struct {
	calls    metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

// NewOTelSink creates instruments on the given meter.
func NewOTelSink(meter metric.Meter) (*OTelSink, error) {
	calls, err := meter.Int64Counter("toolbridge.call.count",
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("toolbridge.call.failures",
		metric.WithDescription("Number of failed tool invocations"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("toolbridge.call.duration",
		metric.WithDescription("Duration of tool invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &OTelSink{
		calls:    calls,
		failures: failures,
		duration: duration,
	}, nil
}

// RecordCall implements Sink.
func (s *OTelSink) RecordCall(ctx context.Context, call Call) {
	attrs := metric.WithAttributes(
		attribute.String("tool", call.Tool),
		attribute.String("status", strconv.Itoa(call.Status)),
		attribute.Bool("error", call.IsError),
	)
	s.calls.Add(ctx, 1, attrs)
	s.duration.Record(ctx, call.Duration.Seconds(), attrs)
	if call.IsError {
		s.failures.Add(ctx, 1, attrs)
	}
}
