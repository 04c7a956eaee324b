package telemetry

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/docker/mcp-widgets"

var (
	tracer trace.Tracer

	// ToolCallCounter counts tools/call requests that reached a widget.
	ToolCallCounter metric.Int64Counter
	// ToolCallDuration is the tools/call latency in milliseconds.
	ToolCallDuration metric.Float64Histogram
	ToolErrorCounter metric.Int64Counter

	ResourceReadCounter metric.Int64Counter
	ListCounter         metric.Int64Counter
	ServerStartCounter  metric.Int64Counter

	BuildCounter  metric.Int64Counter
	BuildDuration metric.Float64Histogram
)

func init() {
	Init()
}

// Init (re)creates the instruments from the global providers.
// Call it again after installing new providers.
func Init() {
	tracer = otel.Tracer(instrumentationName)
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	ToolCallCounter, _ = meter.Int64Counter("mcp.widgets.tool.calls",
		metric.WithDescription("Number of widget tool calls"),
		metric.WithUnit("1"))
	ToolCallDuration, _ = meter.Float64Histogram("mcp.widgets.tool.duration",
		metric.WithDescription("Duration of widget tool calls"),
		metric.WithUnit("ms"))
	ToolErrorCounter, _ = meter.Int64Counter("mcp.widgets.tool.errors",
		metric.WithDescription("Number of widget tool calls that returned an error"),
		metric.WithUnit("1"))
	ResourceReadCounter, _ = meter.Int64Counter("mcp.widgets.resource.reads",
		metric.WithDescription("Number of widget resource reads"),
		metric.WithUnit("1"))
	ListCounter, _ = meter.Int64Counter("mcp.widgets.list",
		metric.WithDescription("Number of list requests by kind"),
		metric.WithUnit("1"))
	ServerStartCounter, _ = meter.Int64Counter("mcp.widgets.server.starts",
		metric.WithDescription("Number of times the server started"),
		metric.WithUnit("1"))
	BuildCounter, _ = meter.Int64Counter("mcp.widgets.builds",
		metric.WithDescription("Number of asset builds"),
		metric.WithUnit("1"))
	BuildDuration, _ = meter.Float64Histogram("mcp.widgets.build.duration",
		metric.WithDescription("Duration of asset builds"),
		metric.WithUnit("ms"))
}

// Debug reports whether telemetry debugging output is enabled.
func Debug() bool {
	return os.Getenv("MCP_WIDGETS_TELEMETRY_DEBUG") != ""
}

func StartToolCallSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("mcp.tool.name", toolName))
	return tracer.Start(ctx, "mcp.tool.call "+toolName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...))
}

func StartResourceReadSpan(ctx context.Context, uri string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "mcp.resource.read",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("mcp.resource.uri", uri)))
}

func StartBuildSpan(ctx context.Context, entries int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "mcp.widgets.build",
		trace.WithAttributes(attribute.Int("mcp.widgets.entries", entries)))
}

// RecordToolCall records a finished tool call. isError covers both protocol
// errors and tool results flagged as errors.
func RecordToolCall(ctx context.Context, span trace.Span, toolName, clientName string, elapsed time.Duration, isError bool) {
	attrs := metric.WithAttributes(
		attribute.String("mcp.tool.name", toolName),
		attribute.String("mcp.client.name", clientName),
	)
	ToolCallCounter.Add(ctx, 1, attrs)
	ToolCallDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

	if isError {
		ToolErrorCounter.Add(ctx, 1, attrs)
		span.SetStatus(codes.Error, "tool call failed")
		return
	}
	span.SetStatus(codes.Ok, "")
}

func RecordResourceRead(ctx context.Context, span trace.Span, uri string, found bool) {
	ResourceReadCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mcp.resource.uri", uri),
		attribute.Bool("mcp.resource.found", found),
	))
	if !found {
		span.SetStatus(codes.Error, "resource not found")
		return
	}
	span.SetStatus(codes.Ok, "")
}

// RecordList records a tools/list, resources/list or resources/templates/list request.
func RecordList(ctx context.Context, kind string, count int) {
	ListCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mcp.list.kind", kind),
		attribute.Int("mcp.list.count", count),
	))
}

func RecordServerStart(ctx context.Context, transport string) {
	ServerStartCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mcp.transport", transport),
	))
}

func RecordBuild(ctx context.Context, span trace.Span, entries int, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.Int("mcp.widgets.entries", entries),
		attribute.Bool("mcp.widgets.build.failed", err != nil),
	)
	BuildCounter.Add(ctx, 1, attrs)
	BuildDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return
	}
	span.SetStatus(codes.Ok, "")
}
