// ABOUTME: Prometheus sink exposing tool call counters and duration histograms.

package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records tool invocation metrics on Prometheus collectors.
type PromSink struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPromSink creates and registers the collectors on the given registerer.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "toolbridge_calls_total",
		Help: "Number of tool invocations by tool, status, and error flag.",
	}, []string{"tool", "status", "error"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "toolbridge_call_duration_seconds",
		Help:    "Duration of tool invocations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	for _, c := range []prometheus.Collector{calls, duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &PromSink{calls: calls, duration: duration}, nil
}

// RecordCall implements Sink.
func (s *PromSink) RecordCall(_ context.Context, call Call) {
	s.calls.WithLabelValues(call.Tool, strconv.Itoa(call.Status), strconv.FormatBool(call.IsError)).Inc()
	s.duration.WithLabelValues(call.Tool).Observe(call.Duration.Seconds())
}
