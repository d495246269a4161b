package mcpserver

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/ctxmemd/internal/mcpserver"

// toolMetrics records per-tool invocation counts, duration, and error counts.
type toolMetrics struct {
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
	errors      metric.Int64Counter
}

func newToolMetrics() *toolMetrics {
	meter := otel.Meter(instrumentationName)
	m := &toolMetrics{}

	var err error
	m.invocations, err = meter.Int64Counter(
		"ctxmemd.mcp.tool.invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		m.invocations = nil
	}

	m.duration, err = meter.Float64Histogram(
		"ctxmemd.mcp.tool.duration_seconds",
		metric.WithDescription("Duration of MCP tool invocations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		m.duration = nil
	}

	m.errors, err = meter.Int64Counter(
		"ctxmemd.mcp.tool.errors_total",
		metric.WithDescription("Total number of MCP tool errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.errors = nil
	}

	return m
}

// start returns a function to be deferred at the top of a tool handler. Call it with
// the handler's named error return so duration and error outcome are recorded together:
//
//	defer s.metrics.start(ctx, "search_conversations", &toolErr)()
func (m *toolMetrics) start(ctx context.Context, tool string, toolErr *error) func() {
	begin := time.Now()
	return func() {
		attrs := []attribute.KeyValue{attribute.String("tool", tool)}
		if m.invocations != nil {
			m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		if m.duration != nil {
			m.duration.Record(ctx, time.Since(begin).Seconds(), metric.WithAttributes(attrs...))
		}
		if toolErr != nil && *toolErr != nil && m.errors != nil {
			m.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
	}
}
